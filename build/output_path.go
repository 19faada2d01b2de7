package build

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"xtc/config"
	"xtc/program"
	"xtc/state"
	"xtc/target"
)

// PackExt is used for packed multi file artifacts.
const PackExt = ".zip"

// buildOutputPath returns constructed output path based on program, backend
// and either default naming scheme or user-defined template. Every backend
// gets its own subdirectory under dst. Single file backends produce a file,
// multi file backends a directory (or an archive when packing is requested).
func buildOutputPath(p *program.Program, b *target.Backend, dst string, env *state.LocalEnv) string {
	outDir := filepath.Join(dst, config.CleanFileName(b.Name))
	outExt := outputExtension(b, env)

	if env.Cfg.Output.OutputNameTemplate == "" {
		return filepath.Join(outDir, cleanPathSegment(p.Name, env)+outExt)
	}

	expandedName := expandOutputNameTemplate(p, b, env)
	if expandedName == "" {
		// fallback to default name if template expansion failed
		return filepath.Join(outDir, cleanPathSegment(p.Name, env)+outExt)
	}

	return assemblePathWithSubdirs(outDir, expandedName, outExt, env)
}

func outputExtension(b *target.Backend, env *state.LocalEnv) string {
	switch {
	case b.SingleFile:
		return b.Extension
	case env.Cfg.Output.PackMultiFile:
		return PackExt
	default:
		return ""
	}
}

func expandOutputNameTemplate(p *program.Program, b *target.Backend, env *state.LocalEnv) string {
	expandedName, err := expandTemplate(p, b, config.OutputNameTemplateFieldName, env.Cfg.Output.OutputNameTemplate)
	if err != nil {
		env.Log.Warn("Unable to prepare output filename", zap.String("backend", b.Name), zap.Error(err))
		return ""
	}
	return filepath.FromSlash(strings.TrimSpace(expandedName))
}

// assemblePathWithSubdirs takes an expanded template name (which may contain
// path separators for subdirectories) and assembles it into a full output path,
// cleaning and transliterating segments as needed
func assemblePathWithSubdirs(outDir, expandedName, outExt string, env *state.LocalEnv) string {
	pathSegments := splitAndCleanPath(expandedName)

	if len(pathSegments) == 0 {
		return outDir
	}

	fileName := cleanPathSegment(pathSegments[len(pathSegments)-1], env) + outExt
	dirParts := make([]string, 0, len(pathSegments)+1)
	dirParts = append(dirParts, outDir)

	for _, segment := range pathSegments[:len(pathSegments)-1] {
		dirParts = append(dirParts, cleanPathSegment(segment, env))
	}

	dirParts = append(dirParts, fileName)
	return filepath.Join(dirParts...)
}

func splitAndCleanPath(path string) []string {
	path = strings.TrimSuffix(path, string(os.PathSeparator))
	segments := make([]string, 0, 8)

	for head, tail := filepath.Split(path); tail != ""; head, tail = filepath.Split(head) {
		segments = slices.Insert(segments, 0, tail)
		head = strings.TrimSuffix(head, string(os.PathSeparator))
		if head == "" {
			break
		}
	}

	return segments
}

func cleanPathSegment(segment string, env *state.LocalEnv) string {
	if env.Cfg.Output.FileNameTransliterate {
		segment = slug.Make(segment)
	}
	if segment == "." || segment == ".." {
		segment = ""
	}
	return config.CleanFileName(segment)
}
