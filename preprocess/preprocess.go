// Package preprocess implements the extension-keyed filter pipeline
// applied to file content before fingerprinting and upload.
package preprocess

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/bobg/htdeploy"
	"github.com/bobg/htdeploy/pattern"
)

// Filter transforms a file's content on its way through the pipeline.
// Implementations must be pure: the same (content, path) pair must
// always produce the same output, since a Preprocessor may invoke a
// filter once for fingerprinting and again for upload.
type Filter interface {
	Apply(content []byte, path string) ([]byte, error)
}

// FilterFunc adapts a function to a Filter.
type FilterFunc func(content []byte, path string) ([]byte, error)

// Apply implements Filter.
func (f FilterFunc) Apply(content []byte, path string) ([]byte, error) {
	return f(content, path)
}

// Registration is one step of a per-extension filter sequence.
type Registration struct {
	Filter Filter
	// Cached, if true, makes this step's output content-addressed and
	// cacheable across invocations of Preprocess within the same deploy
	// (and across deploys, since the cache lives on disk under TempDir).
	Cached bool
}

// Pipeline maps a file extension (including the leading ".", e.g.
// ".js") to the ordered sequence of filter steps applied to files with
// that extension.
type Pipeline map[string][]Registration

// Preprocessor applies a Pipeline to files whose path matches one of
// Patterns. TempDir is an immutable configuration field: every
// generated temporary file and every cache entry lives beneath it.
type Preprocessor struct {
	TempDir  string
	Patterns []string
	Pipeline Pipeline

	cache *cache
}

// New constructs a Preprocessor. tempDir must exist and be writable.
func New(tempDir string, patterns []string, pl Pipeline) (*Preprocessor, error) {
	c, err := newCache(tempDir, 256)
	if err != nil {
		return nil, errors.Wrap(err, "creating preprocessor cache")
	}
	return &Preprocessor{
		TempDir:  tempDir,
		Patterns: patterns,
		Pipeline: pl,
		cache:    c,
	}, nil
}

// Preprocess returns the path to the preprocessed version of the file
// at absPath, whose path relative to the deploy root (with a leading
// "/") is relPath. If the file's extension has no registered filters,
// or relPath does not match any of p.Patterns, Preprocess returns
// absPath unchanged and no temporary file is created.
//
// Otherwise the file is read into memory, each filter step is folded
// over the content in order, and the final content is written to a
// fresh temporary file beneath p.TempDir, whose path is returned. The
// caller is responsible for removing the returned path if it differs
// from absPath.
func (p *Preprocessor) Preprocess(absPath, relPath string) (string, error) {
	ext := filepath.Ext(absPath)
	steps := p.Pipeline[ext]
	if len(steps) == 0 {
		return absPath, nil
	}
	if !pattern.Matches(toSlashRooted(relPath), p.Patterns, false) {
		return absPath, nil
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", errors.Wrapf(err, "reading %s", absPath)
	}

	for _, step := range steps {
		content, err = p.runStep(step, content, absPath)
		if err != nil {
			return "", errors.Wrapf(err, "preprocessing %s", absPath)
		}
	}

	out, err := p.writeTemp(content)
	if err != nil {
		return "", errors.Wrapf(err, "writing preprocessed output for %s", absPath)
	}
	return out, nil
}

func (p *Preprocessor) runStep(step Registration, content []byte, path string) ([]byte, error) {
	if !step.Cached {
		return step.Filter.Apply(content, path)
	}

	key := htdeploy.FingerprintBytes(content)
	if cached, ok := p.cache.get(string(key)); ok {
		return cached, nil
	}

	out, err := step.Filter.Apply(content, path)
	if err != nil {
		return nil, err
	}
	if err := p.cache.put(string(key), out); err != nil {
		return nil, errors.Wrap(err, "caching filter output")
	}
	return out, nil
}

func (p *Preprocessor) writeTemp(content []byte) (string, error) {
	f, err := os.CreateTemp(p.TempDir, "htdeploy-pp-*")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := f.Write(content); err != nil {
		return "", err
	}
	return f.Name(), nil
}

// toSlashRooted converts an OS-native absolute path fragment into a
// "/"-separated path for matching against preprocess patterns. Callers
// pass the path relative to the deploy root with a leading "/"; this
// helper is defensive for callers that pass OS-native separators.
func toSlashRooted(p string) string {
	p = filepath.ToSlash(p)
	if !strings.HasPrefix(p, "/") {
		return "/" + p
	}
	return p
}
