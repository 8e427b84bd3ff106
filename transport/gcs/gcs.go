// Package gcs implements transport.Server on top of a Google Cloud
// Storage bucket, for deploying a static tree straight to a bucket
// used as a web origin.
package gcs

import (
	"context"
	stderrs "errors"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/bobg/htdeploy"
	"github.com/bobg/htdeploy/transport"
)

// Server stores the remote tree as objects in a GCS bucket, with
// object names equal to the htdeploy path (minus its leading "/").
type Server struct {
	bucket *storage.BucketHandle
	name   string // bucket name, used only for RootDir's display value
}

// New produces a new Server backed by bucket.
func New(bucket *storage.BucketHandle, bucketName string) *Server {
	return &Server{bucket: bucket, name: bucketName}
}

func (s *Server) objName(path htdeploy.Path) string {
	return strings.TrimPrefix(string(path), "/")
}

func (s *Server) Connect(ctx context.Context) error {
	_, err := s.bucket.Attrs(ctx)
	return errors.Wrap(err, "checking bucket attrs")
}

func (s *Server) RootDir(ctx context.Context) (string, error) {
	return "gs://" + s.name, nil
}

func (s *Server) ReadFile(ctx context.Context, remotePath htdeploy.Path, localDest string) error {
	obj := s.bucket.Object(s.objName(remotePath))
	r, err := obj.NewReader(ctx)
	if stderrs.Is(err, storage.ErrObjectNotExist) {
		return &htdeploy.ServerError{Op: "readFile", Path: remotePath, Err: err}
	}
	if err != nil {
		return &htdeploy.ServerError{Op: "readFile", Path: remotePath, Err: err}
	}
	defer r.Close()

	f, err := os.Create(localDest)
	if err != nil {
		return &htdeploy.ServerError{Op: "readFile", Path: remotePath, Err: err}
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return &htdeploy.ServerError{Op: "readFile", Path: remotePath, Err: err}
	}
	return nil
}

func (s *Server) WriteFile(ctx context.Context, localSource string, remotePath htdeploy.Path, onProgress transport.OnProgress) error {
	f, err := os.Open(localSource)
	if err != nil {
		return &htdeploy.ServerError{Op: "writeFile", Path: remotePath, Err: err}
	}
	defer f.Close()

	obj := s.bucket.Object(s.objName(remotePath))
	w := obj.NewWriter(ctx)

	_, err = io.Copy(w, f)
	closeErr := w.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		return &htdeploy.ServerError{Op: "writeFile", Path: remotePath, Err: err}
	}
	if onProgress != nil {
		onProgress(100)
	}
	return nil
}

// RenameFile implements an atomic-on-the-remote rename as a
// copy-then-delete, since GCS objects have no native rename.
func (s *Server) RenameFile(ctx context.Context, from, to htdeploy.Path) error {
	src := s.bucket.Object(s.objName(from))
	dst := s.bucket.Object(s.objName(to))

	if _, err := dst.CopierFrom(src).Run(ctx); err != nil {
		return &htdeploy.ServerError{Op: "renameFile", Path: from, Err: err}
	}
	if err := src.Delete(ctx); err != nil {
		return &htdeploy.ServerError{Op: "renameFile", Path: from, Err: err}
	}
	return nil
}

func (s *Server) RemoveFile(ctx context.Context, path htdeploy.Path) error {
	err := s.bucket.Object(s.objName(path)).Delete(ctx)
	if err != nil && !stderrs.Is(err, storage.ErrObjectNotExist) {
		return &htdeploy.ServerError{Op: "removeFile", Path: path, Err: err}
	}
	return nil
}

// RemoveDir is a no-op: GCS has no directory objects, so a "directory"
// disappears implicitly once its last object is removed.
func (s *Server) RemoveDir(ctx context.Context, path htdeploy.Path) error {
	return nil
}

// CreateDir is a no-op for the same reason RemoveDir is.
func (s *Server) CreateDir(ctx context.Context, path htdeploy.Path) error {
	return nil
}

func (s *Server) Purge(ctx context.Context, path htdeploy.Path, onEntry transport.OnEntry) error {
	prefix := s.objName(path)
	iter := s.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := iter.Next()
		if stderrs.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return &htdeploy.ServerError{Op: "purge", Path: path, Err: err}
		}
		if err := s.bucket.Object(attrs.Name).Delete(ctx); err != nil {
			return &htdeploy.ServerError{Op: "purge", Path: htdeploy.Path("/" + attrs.Name), Err: err}
		}
		if onEntry != nil {
			onEntry(htdeploy.Path("/" + attrs.Name))
		}
	}
}

// Execute is not supported: GCS is an object store, not a shell host.
func (s *Server) Execute(ctx context.Context, cmd string) (string, error) {
	return "", &htdeploy.ServerError{Op: "execute", Err: errors.New("gcs does not support remote command execution")}
}

func (s *Server) Close() error {
	return nil
}

func init() {
	transport.Register("gcs", func(ctx context.Context, conf map[string]interface{}) (transport.Server, error) {
		var options []option.ClientOption
		if creds, ok := conf["creds"].(string); ok {
			options = append(options, option.WithCredentialsFile(creds))
		}
		bucketName, ok := conf["bucket"].(string)
		if !ok {
			return nil, errors.New(`gcs: missing "bucket" parameter`)
		}
		c, err := storage.NewClient(ctx, options...)
		if err != nil {
			return nil, errors.Wrap(err, "creating cloud storage client")
		}
		return New(c.Bucket(bucketName), bucketName), nil
	})
}
