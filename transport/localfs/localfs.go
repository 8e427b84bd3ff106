// Package localfs implements transport.Server over a plain directory
// tree on the local filesystem, for same-host staging and as the
// substrate for the test suite's fake remote.
package localfs

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/bobg/flock"
	"github.com/pkg/errors"

	"github.com/bobg/htdeploy"
	"github.com/bobg/htdeploy/transport"
)

// Server mirrors a remote tree beneath Root on the local filesystem.
type Server struct {
	root    string
	flocker flock.Locker
}

// New constructs a Server rooted at root. root is created on Connect
// if it does not already exist.
func New(root string) *Server {
	return &Server{root: root}
}

func (s *Server) Connect(ctx context.Context) error {
	return errors.Wrapf(os.MkdirAll(s.root, 0755), "creating root %s", s.root)
}

func (s *Server) RootDir(ctx context.Context) (string, error) {
	return filepath.Clean(s.root), nil
}

func (s *Server) abs(path htdeploy.Path) string {
	return filepath.Join(s.root, filepath.FromSlash(string(path)))
}

func (s *Server) ReadFile(ctx context.Context, remotePath htdeploy.Path, localDest string) error {
	src, err := os.Open(s.abs(remotePath))
	if os.IsNotExist(err) {
		return &htdeploy.ServerError{Op: "readFile", Path: remotePath, Err: err}
	}
	if err != nil {
		return &htdeploy.ServerError{Op: "readFile", Path: remotePath, Err: err}
	}
	defer src.Close()

	dst, err := os.Create(localDest)
	if err != nil {
		return &htdeploy.ServerError{Op: "readFile", Path: remotePath, Err: err}
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	if err != nil {
		return &htdeploy.ServerError{Op: "readFile", Path: remotePath, Err: err}
	}
	return nil
}

// WriteFile uploads localSource to remotePath. The write is guarded by
// an flock on the destination path, so that two htdeploy processes
// sharing a localfs root (in particular, racing writers to the
// running-marker file) cannot interleave partial writes.
func (s *Server) WriteFile(ctx context.Context, localSource string, remotePath htdeploy.Path, onProgress transport.OnProgress) error {
	dest := s.abs(remotePath)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return &htdeploy.ServerError{Op: "writeFile", Path: remotePath, Err: err}
	}

	err := s.lockPath(dest, func() error {
		src, err := os.Open(localSource)
		if err != nil {
			return err
		}
		defer src.Close()

		info, err := src.Stat()
		if err != nil {
			return err
		}

		dst, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer dst.Close()

		var written int64
		buf := make([]byte, 32*1024)
		for {
			n, rerr := src.Read(buf)
			if n > 0 {
				if _, werr := dst.Write(buf[:n]); werr != nil {
					return werr
				}
				written += int64(n)
				if onProgress != nil && info.Size() > 0 {
					onProgress(int(written * 100 / info.Size()))
				}
			}
			if rerr == io.EOF {
				break
			}
			if rerr != nil {
				return rerr
			}
		}
		if onProgress != nil {
			onProgress(100)
		}
		return nil
	})
	if err != nil {
		return &htdeploy.ServerError{Op: "writeFile", Path: remotePath, Err: err}
	}
	return nil
}

func (s *Server) RenameFile(ctx context.Context, from, to htdeploy.Path) error {
	dest := s.abs(to)
	err := s.lockPath(dest, func() error {
		return os.Rename(s.abs(from), dest)
	})
	if err != nil {
		return &htdeploy.ServerError{Op: "renameFile", Path: from, Err: err}
	}
	return nil
}

func (s *Server) RemoveFile(ctx context.Context, path htdeploy.Path) error {
	target := s.abs(path)
	err := s.lockPath(target, func() error {
		return os.Remove(target)
	})
	if err != nil && !os.IsNotExist(err) {
		return &htdeploy.ServerError{Op: "removeFile", Path: path, Err: err}
	}
	return nil
}

func (s *Server) RemoveDir(ctx context.Context, path htdeploy.Path) error {
	err := os.Remove(s.abs(path))
	if err != nil && !os.IsNotExist(err) {
		return &htdeploy.ServerError{Op: "removeDir", Path: path, Err: err}
	}
	return nil
}

func (s *Server) CreateDir(ctx context.Context, path htdeploy.Path) error {
	err := os.MkdirAll(s.abs(path), 0755)
	if err != nil {
		return &htdeploy.ServerError{Op: "createDir", Path: path, Err: err}
	}
	return nil
}

func (s *Server) Purge(ctx context.Context, path htdeploy.Path, onEntry transport.OnEntry) error {
	dir := s.abs(path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &htdeploy.ServerError{Op: "purge", Path: path, Err: err}
	}

	for _, e := range entries {
		entryPath := htdeploy.Path(string(path) + e.Name())
		if e.IsDir() {
			entryPath += "/"
		}
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return &htdeploy.ServerError{Op: "purge", Path: entryPath, Err: err}
		}
		if onEntry != nil {
			onEntry(entryPath)
		}
	}
	return nil
}

// Execute is not supported by the local filesystem backend; it always
// fails. Remote-shell jobs require a backend that can actually run
// commands, such as httpremote.
func (s *Server) Execute(ctx context.Context, cmd string) (string, error) {
	return "", &htdeploy.ServerError{Op: "execute", Err: errors.New("localfs does not support remote command execution")}
}

func (s *Server) Close() error {
	return nil
}

// lockPath locks the file at path for the duration of fn, guarding
// the WriteFile, RenameFile, and RemoveFile targets against a second
// htdeploy process sharing the same root. RemoveDir and Purge take no
// lock.
func (s *Server) lockPath(path string, fn func() error) error {
	if err := s.flocker.Lock(path); err != nil {
		return errors.Wrapf(err, "locking %s", path)
	}
	defer s.flocker.Unlock(path)
	return fn()
}

func init() {
	transport.Register("localfs", func(_ context.Context, conf map[string]interface{}) (transport.Server, error) {
		root, ok := conf["root"].(string)
		if !ok {
			return nil, errors.New(`localfs: missing "root" parameter`)
		}
		return New(root), nil
	})
}
