// Package build implements "build" command: loads program, assembles it for
// requested backends and writes results.
package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/ianaindex"

	"xtc/assembly"
	"xtc/common"
	"xtc/method"
	"xtc/program"
	"xtc/state"
	"xtc/target"
)

// DefaultBackend is used when nothing was requested on command line.
const DefaultBackend = "default"

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("build")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no program has been specified")
	}
	src, err = filepath.Abs(src)
	if err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	if link := cmd.String("link"); len(link) > 0 {
		mode, err := common.ParseLinkMode(link)
		if err != nil {
			return fmt.Errorf("unknown link mode requested: %w", err)
		}
		env.LinkMode = &mode
	}

	env.Overwrite = cmd.Bool("overwrite")

	// Since zip "standard" does not define file name encoding we may need to
	// force archaic code page for old archives
	cp := cmd.String("force-zip-cp")
	if len(cp) > 0 {
		env.CodePage, err = ianaindex.IANA.Encoding(cp)
		if err != nil {
			log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", cp), zap.Error(err))
			env.CodePage = nil
		} else {
			n, _ := ianaindex.IANA.Name(env.CodePage)
			log.Debug("Forcefully converting all non UTF-8 file names in archives", zap.String("charset", n))
		}
	}

	registry, err := target.FromConfig(env.Cfg.Backends, env.EffectiveLinkMode)
	if err != nil {
		return fmt.Errorf("unable to prepare backends: %w", err)
	}

	ids, err := requestedBackends(registry, cmd.StringSlice("to"), cmd.Bool("all"))
	if err != nil {
		return err
	}

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst), zap.Strings("backends", ids))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return process(ctx, registry, src, dst, ids, log)
}

// requestedBackends returns canonical backend names in request order without
// duplicates.
func requestedBackends(registry *target.Registry, to []string, all bool) ([]string, error) {
	if all {
		ids := make([]string, 0, registry.Len())
		for _, b := range registry.All() {
			ids = append(ids, b.Name)
		}
		return ids, nil
	}

	var requested []string
	for _, s := range to {
		for _, id := range strings.Split(s, ",") {
			if id = strings.TrimSpace(id); len(id) > 0 {
				requested = append(requested, id)
			}
		}
	}
	if len(requested) == 0 {
		if b, err := registry.Resolve(DefaultBackend); err == nil {
			return []string{b.Name}, nil
		}
		if all := registry.All(); len(all) > 0 {
			return []string{all[0].Name}, nil
		}
		return nil, errors.New("no backends configured")
	}

	ids := make([]string, 0, len(requested))
	for _, id := range requested {
		b, err := registry.Resolve(id)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(ids, b.Name) {
			ids = append(ids, b.Name)
		}
	}
	return ids, nil
}

// process handles the core build logic independently of CLI framework.
// Failure of a single backend does not prevent others from being written,
// all errors are returned together.
func process(ctx context.Context, registry *target.Registry, src, dst string, ids []string, log *zap.Logger) error {
	env := state.EnvFromContext(ctx)

	loader := program.NewLoader(registry,
		program.WithTolerateBadFragments(env.Cfg.Assembly.TolerateBadFragments),
		program.WithCodePage(env.CodePage),
		program.WithLogger(log))
	p, err := loader.Load(ctx, src)
	if err != nil {
		return err
	}
	if len(p.Skipped) > 0 {
		env.Rpt.StoreData("skipped.txt", []byte(strings.Join(p.Skipped, "\n")))
	}

	resolver, err := method.NewResolver(registry, env.Cfg.Assembly.ResolverCacheSize)
	if err != nil {
		return err
	}
	pipeline, err := assembly.New(registry, resolver, p.Input(),
		assembly.WithLogger(log),
		assembly.WithFollowReferences(env.Cfg.Assembly.FollowReferences),
		assembly.WithParallel(env.Cfg.Assembly.Parallel))
	if err != nil {
		return err
	}

	artifacts, err := pipeline.AssembleAll(ctx, ids)
	for i, a := range artifacts {
		if a == nil {
			continue
		}
		env.Rpt.StoreData(fmt.Sprintf("artifacts/%s.txt", a.Backend.Name), []byte(a.String()))

		outputPath := buildOutputPath(p, a.Backend, dst, env)
		if werr := writeArtifact(a, outputPath, env, log); werr != nil {
			err = multierr.Append(err, fmt.Errorf("backend %q: %w", ids[i], werr))
			continue
		}
		log.Info("Artifact written",
			zap.String("backend", a.Backend.Name),
			zap.Stringer("link", a.LinkMode),
			zap.Stringer("id", a.ID),
			zap.Int("units", len(a.Units)),
			zap.String("to", outputPath),
			zap.String("run", a.Backend.CommandLine(outputPath)))
	}
	return err
}
