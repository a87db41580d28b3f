package javasrc

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
	"golang.org/x/sync/errgroup"
)

// skipDirs are build output and tool directories never worth scanning.
var skipDirs = map[string]bool{
	".git":         true,
	".idea":        true,
	".gradle":      true,
	"target":       true,
	"build":        true,
	"out":          true,
	"node_modules": true,
}

// Walk lists the .java files under root in lexical order, honoring the
// .gitignore at root when present.
func Walk(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("source root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source root %s is not a directory", root)
	}

	var matcher *ignore.GitIgnore
	if gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
		matcher = gi
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if skipDirs[d.Name()] || (matcher != nil && matcher.MatchesPath(rel+"/")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".java") {
			return nil
		}
		if matcher != nil && matcher.MatchesPath(rel) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// ParseFiles reads and parses paths with at most workers files in flight.
// Results keep the order of paths.
func ParseFiles(ctx context.Context, paths []string, workers int) ([]*File, error) {
	if workers <= 0 {
		workers = 4
	}
	out := make([]*File, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			src, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read file %s: %w", path, err)
			}
			f, err := ParseFile(gctx, path, src)
			if err != nil {
				return err
			}
			out[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
