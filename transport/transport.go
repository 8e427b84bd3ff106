// Package transport defines the Server abstraction the Deployer uses
// to reach the remote tree, plus a factory registry for pluggable
// backends.
package transport

import (
	"context"
	"fmt"

	"github.com/bobg/htdeploy"
)

// OnProgress reports fractional upload/download progress, 0-100.
type OnProgress func(percent int)

// OnEntry is called once per entry removed during a Purge.
type OnEntry func(path htdeploy.Path)

// Server is the synchronous remote-transport contract the Deployer
// drives.
// Implementations are free to be backed by FTP, SFTP, HTTP, a cloud
// object store, or a local filesystem (for staging and tests).
type Server interface {
	// Connect establishes a session. It is called once, before any
	// other method.
	Connect(ctx context.Context) error

	// RootDir returns the absolute remote root path, without a
	// trailing slash.
	RootDir(ctx context.Context) (string, error)

	// ReadFile copies the content of remotePath into localDest. It
	// fails with a *htdeploy.ServerError if remotePath does not exist.
	ReadFile(ctx context.Context, remotePath htdeploy.Path, localDest string) error

	// WriteFile uploads the content of localSource to remotePath,
	// creating or overwriting it. onProgress, if non-nil, is invoked
	// with increasing percentages as the transfer proceeds.
	WriteFile(ctx context.Context, localSource string, remotePath htdeploy.Path, onProgress OnProgress) error

	// RenameFile atomically renames from to to on the remote.
	RenameFile(ctx context.Context, from, to htdeploy.Path) error

	// RemoveFile removes a single remote file.
	RemoveFile(ctx context.Context, path htdeploy.Path) error

	// RemoveDir removes a remote directory, which must be empty.
	RemoveDir(ctx context.Context, path htdeploy.Path) error

	// CreateDir creates path and any missing parents. It is a no-op if
	// path already exists.
	CreateDir(ctx context.Context, path htdeploy.Path) error

	// Purge removes every entry inside path, recursively, while
	// leaving path itself in place. onEntry, if non-nil, is called once
	// per removed entry.
	Purge(ctx context.Context, path htdeploy.Path, onEntry OnEntry) error

	// Execute runs cmd on the remote and returns its output. It
	// returns a *htdeploy.ServerError on failure.
	Execute(ctx context.Context, cmd string) (string, error)

	// Close releases any resources Connect acquired.
	Close() error
}

// Factory constructs a Server from a backend-specific configuration
// map.
type Factory func(ctx context.Context, conf map[string]interface{}) (Server, error)

var registry = make(map[string]Factory)

// Register associates key with f, so that a later Create(ctx, key,
// conf) call constructs a Server via f. Intended to be called from an
// init function in each backend package.
func Register(key string, f Factory) {
	registry[key] = f
}

// Create constructs the Server registered under key, passing it conf.
func Create(ctx context.Context, key string, conf map[string]interface{}) (Server, error) {
	f, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("transport: no backend registered for %q", key)
	}
	return f(ctx, conf)
}
