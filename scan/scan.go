// Package scan walks a local directory tree and produces the
// path-to-fingerprint map the Planner diffs against a remote manifest.
package scan

import (
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/bobg/htdeploy"
	"github.com/bobg/htdeploy/pattern"
)

// Preprocessor is the subset of preprocess.Preprocessor the Scanner
// needs.
type Preprocessor interface {
	Preprocess(absPath, relPath string) (string, error)
}

// Scanner walks Root and builds a FileMap, applying IgnorePatterns and
// running each file's content through Preprocessor before
// fingerprinting it.
type Scanner struct {
	Root           string
	IgnorePatterns []string
	Preprocessor   Preprocessor
	Logger         htdeploy.Logger
}

// Scan performs a depth-first traversal of root, building a FileMap.
// Traversal order within a directory is lexicographic by entry name,
// so results are deterministic for a given filesystem state.
func (s *Scanner) Scan() (htdeploy.FileMap, error) {
	m := htdeploy.FileMap{}
	if err := s.walk("/", m); err != nil {
		return nil, errors.Wrap(err, "scanning")
	}
	return m, nil
}

// walk visits the directory at relDir (a "/"-rooted path, "/" for the
// root itself) and records its surviving entries into m.
func (s *Scanner) walk(relDir string, m htdeploy.FileMap) error {
	absDir := s.abs(relDir)

	entries, err := os.ReadDir(absDir)
	if err != nil {
		// Unreadable directories are silently skipped, including the
		// root itself if it has vanished between construction and scan.
		return nil
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		name := e.Name()
		if name == "." || name == ".." {
			continue
		}

		isDir := e.IsDir()
		relPath := joinRel(relDir, name)
		if isDir {
			relPath += "/"
		}

		if pattern.Matches(relPath, s.IgnorePatterns, isDir) {
			s.log("ignored "+relPath, htdeploy.Ignored)
			continue
		}

		if isDir {
			m[htdeploy.Path(relPath)] = htdeploy.DIR
			s.progress(relPath)
			if err := s.walk(relPath, m); err != nil {
				return err
			}
			continue
		}

		fp, err := s.fingerprint(relPath)
		if err != nil {
			s.log(errors.Wrapf(err, "fingerprinting %s", relPath).Error(), htdeploy.Warning)
			continue
		}
		m[htdeploy.Path(relPath)] = fp
		s.progress(relPath)
	}

	return nil
}

func (s *Scanner) fingerprint(relPath string) (htdeploy.Fingerprint, error) {
	absPath := s.abs(relPath)

	preprocessed := absPath
	if s.Preprocessor != nil {
		var err error
		preprocessed, err = s.Preprocessor.Preprocess(absPath, relPath)
		if err != nil {
			return "", errors.Wrapf(err, "preprocessing %s", relPath)
		}
	}

	f, err := os.Open(preprocessed)
	if err != nil {
		return "", errors.Wrapf(err, "opening %s", preprocessed)
	}
	defer f.Close()

	if preprocessed != absPath {
		defer os.Remove(preprocessed)
	}

	return htdeploy.FingerprintReader(f)
}

func (s *Scanner) abs(relPath string) string {
	return filepath.Join(s.Root, filepath.FromSlash(relPath))
}

func (s *Scanner) log(msg string, sev htdeploy.Severity) {
	if s.Logger != nil {
		s.Logger.Log(msg, sev)
	}
}

func (s *Scanner) progress(relPath string) {
	if p, ok := s.Logger.(htdeploy.Progress); ok {
		p.Step(0, 0, relPath)
	}
}

// joinRel joins a "/"-rooted directory path with a single entry name.
func joinRel(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return path.Join(dir, name)
}
