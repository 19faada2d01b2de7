package build

import (
	"fmt"
	"os"
	"path/filepath"

	fixzip "github.com/hidez8891/zip"
	"go.uber.org/zap"

	"xtc/assembly"
	"xtc/state"
)

// writeArtifact stores artifact at outputPath: single file backends get a
// file, multi file ones a directory of units or a packed archive.
func writeArtifact(a *assembly.Artifact, outputPath string, env *state.LocalEnv, log *zap.Logger) error {
	if err := prepareOutput(outputPath, env, log); err != nil {
		return err
	}

	switch {
	case a.Backend.SingleFile:
		return os.WriteFile(outputPath, a.Bytes(), 0644)
	case env.Cfg.Output.PackMultiFile:
		return packUnits(a.Units, outputPath)
	default:
		return writeUnits(a.Units, outputPath)
	}
}

// prepareOutput refuses to touch existing output unless overwrite was
// requested.
func prepareOutput(outputPath string, env *state.LocalEnv, log *zap.Logger) error {
	if _, err := os.Stat(outputPath); err == nil {
		if !env.Overwrite {
			return fmt.Errorf("output already exists: %s", outputPath)
		}
		log.Warn("Overwriting existing output", zap.String("output", outputPath))
		if err = os.RemoveAll(outputPath); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}
	return nil
}

func unitPath(dir, name string) (string, error) {
	rel := filepath.FromSlash(name)
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("unit %q: unsafe name", name)
	}
	return filepath.Join(dir, rel), nil
}

func writeUnits(units []assembly.Unit, dir string) error {
	for _, u := range units {
		p, err := unitPath(dir, u.Name)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return fmt.Errorf("unable to create unit directory: %w", err)
		}
		if err := os.WriteFile(p, []byte(u.Text), 0644); err != nil {
			return fmt.Errorf("unable to write unit %q: %w", u.Name, err)
		}
	}
	return nil
}

func packUnits(units []assembly.Unit, to string) error {
	out, err := os.Create(to)
	if err != nil {
		return fmt.Errorf("unable to create target file (%s): %w", to, err)
	}
	defer out.Close()

	w := fixzip.NewWriter(out)
	for _, u := range units {
		if _, err := unitPath(".", u.Name); err != nil {
			return err
		}
		fw, err := w.Create(u.Name)
		if err != nil {
			return fmt.Errorf("unable to add unit %q: %w", u.Name, err)
		}
		if _, err := fw.Write([]byte(u.Text)); err != nil {
			return fmt.Errorf("unable to write unit %q: %w", u.Name, err)
		}
	}
	// make sure buffers are flushed before continuing
	if err := w.Close(); err != nil {
		return fmt.Errorf("unable to close output archive: %w", err)
	}
	return out.Close()
}
