// Package transporttest implements an in-memory transport.Server, for
// unit-testing the Deployer and its collaborators without touching a
// real network transport.
package transporttest

import (
	"context"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/bobg/htdeploy"
	"github.com/bobg/htdeploy/transport"
)

// Server is a mutex-guarded, map-backed fake remote tree.
type Server struct {
	mu    sync.Mutex
	files map[htdeploy.Path][]byte
	dirs  map[htdeploy.Path]bool

	// Commands records every Execute call, for assertions in tests.
	Commands []string
	// ExecuteOutput is returned by Execute unless ExecuteErr is set.
	ExecuteOutput string
	ExecuteErr    error
}

// New produces a new Server.
func New() *Server {
	return &Server{
		files: make(map[htdeploy.Path][]byte),
		dirs:  map[htdeploy.Path]bool{"/": true},
	}
}

func (s *Server) Connect(ctx context.Context) error { return nil }

func (s *Server) RootDir(ctx context.Context) (string, error) {
	return "/remote", nil
}

func (s *Server) ReadFile(ctx context.Context, remotePath htdeploy.Path, localDest string) error {
	s.mu.Lock()
	content, ok := s.files[remotePath]
	s.mu.Unlock()
	if !ok {
		return &htdeploy.ServerError{Op: "readFile", Path: remotePath, Err: os.ErrNotExist}
	}
	return os.WriteFile(localDest, content, 0644)
}

func (s *Server) WriteFile(ctx context.Context, localSource string, remotePath htdeploy.Path, onProgress transport.OnProgress) error {
	f, err := os.Open(localSource)
	if err != nil {
		return &htdeploy.ServerError{Op: "writeFile", Path: remotePath, Err: err}
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return &htdeploy.ServerError{Op: "writeFile", Path: remotePath, Err: err}
	}

	s.mu.Lock()
	s.files[remotePath] = content
	s.mu.Unlock()

	if onProgress != nil {
		onProgress(100)
	}
	return nil
}

func (s *Server) RenameFile(ctx context.Context, from, to htdeploy.Path) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	content, ok := s.files[from]
	if !ok {
		return &htdeploy.ServerError{Op: "renameFile", Path: from, Err: os.ErrNotExist}
	}
	delete(s.files, from)
	s.files[to] = content
	return nil
}

func (s *Server) RemoveFile(ctx context.Context, path htdeploy.Path) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, path)
	return nil
}

func (s *Server) RemoveDir(ctx context.Context, path htdeploy.Path) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.dirs, path)
	return nil
}

func (s *Server) CreateDir(ctx context.Context, path htdeploy.Path) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirs[path] = true
	return nil
}

func (s *Server) Purge(ctx context.Context, path htdeploy.Path, onEntry transport.OnEntry) error {
	s.mu.Lock()
	var removed []htdeploy.Path
	for p := range s.files {
		if p != path && strings.HasPrefix(string(p), string(path)) {
			removed = append(removed, p)
		}
	}
	for p := range s.dirs {
		if p != path && strings.HasPrefix(string(p), string(path)) {
			removed = append(removed, p)
		}
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })
	for _, p := range removed {
		delete(s.files, p)
		delete(s.dirs, p)
	}
	s.mu.Unlock()

	if onEntry != nil {
		for _, p := range removed {
			onEntry(p)
		}
	}
	return nil
}

func (s *Server) Execute(ctx context.Context, cmd string) (string, error) {
	s.mu.Lock()
	s.Commands = append(s.Commands, cmd)
	s.mu.Unlock()
	return s.ExecuteOutput, s.ExecuteErr
}

func (s *Server) Close() error { return nil }

// Has reports whether path exists as a file or directory in the fake
// remote. A ".deploytmp" staging file is stored under its own name, so
// Has(p) is true for p itself only once p has been renamed into place.
func (s *Server) Has(path htdeploy.Path) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[path]; ok {
		return true
	}
	return s.dirs[path]
}

// Content returns the committed bytes at path, if any.
func (s *Server) Content(path htdeploy.Path) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.files[path]
	return b, ok
}

var _ transport.Server = &Server{}
