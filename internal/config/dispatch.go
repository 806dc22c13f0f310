package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/specialistvlad/burstbuild/internal/ctxlog"
	"github.com/specialistvlad/burstbuild/internal/fsutil"
)

// DefaultNames are the build-file names looked up by Discover, in order.
var DefaultNames = []string{"burstbuild.hcl", "burstbuild.yaml", "burstbuild.yml"}

// ErrNoBuildFile is returned by Discover when no build file exists.
var ErrNoBuildFile = errors.New("no build file found")

// ByExtension is a Loader that hands every file to the loader registered for
// its extension. Directories are expanded to the files they contain with a
// known extension.
type ByExtension map[string]Loader

// Load groups the given paths by extension and hands each group to its
// loader in one call, so a loader sees every file it owns at once. Groups are
// loaded in the order their extension is first seen, and the models are
// merged in that order. Files are loaded in lexical order within each
// directory.
func (b ByExtension) Load(ctx context.Context, paths ...string) (*Model, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := b.expand(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered build files.", "count", len(files))

	var order []string
	groups := make(map[string][]string)
	for _, file := range files {
		ext := strings.ToLower(filepath.Ext(file))
		if _, seen := groups[ext]; !seen {
			order = append(order, ext)
		}
		groups[ext] = append(groups[ext], file)
	}

	model := &Model{}
	for _, ext := range order {
		m, err := b[ext].Load(ctx, groups[ext]...)
		if err != nil {
			return nil, err
		}
		model.Merge(m)
	}
	return model, nil
}

func (b ByExtension) expand(paths []string) ([]string, error) {
	files, err := fsutil.ExpandPaths(paths, func(p string) bool {
		_, ok := b[strings.ToLower(filepath.Ext(p))]
		return ok
	})
	if err != nil {
		return nil, fmt.Errorf("reading build file: %w", err)
	}
	for _, f := range files {
		if _, ok := b[strings.ToLower(filepath.Ext(f))]; !ok {
			return nil, fmt.Errorf("unsupported build file %s: extension must be one of %s", f, b.extensions())
		}
	}
	return files, nil
}

func (b ByExtension) extensions() string {
	exts := make([]string, 0, len(b))
	for ext := range b {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return strings.Join(exts, ", ")
}

// Discover returns the first of DefaultNames that exists in dir.
func Discover(dir string) (string, error) {
	for _, name := range DefaultNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w in %s (looked for %s)", ErrNoBuildFile, dir, strings.Join(DefaultNames, ", "))
}
