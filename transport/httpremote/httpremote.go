// Package httpremote implements transport.Server as an HTTP client
// talking to a companion htdeploy HTTP endpoint on the remote host:
// one verb per Server operation, query parameters for path arguments,
// multipart file bodies for uploads, and raw response bodies for
// downloads.
package httpremote

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"

	"github.com/pkg/errors"

	"github.com/bobg/htdeploy"
	"github.com/bobg/htdeploy/transport"
)

// Server talks to a remote htdeploy HTTP endpoint at BaseURL.
type Server struct {
	BaseURL string
	Client  *http.Client
}

// New constructs a Server. If client is nil, http.DefaultClient is
// used.
func New(baseURL string, client *http.Client) *Server {
	if client == nil {
		client = http.DefaultClient
	}
	return &Server{BaseURL: baseURL, Client: client}
}

func (s *Server) url(op string, v url.Values) string {
	u := s.BaseURL + "/" + op
	if len(v) > 0 {
		u += "?" + v.Encode()
	}
	return u
}

func (s *Server) Connect(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url("connect", nil), nil)
	if err != nil {
		return err
	}
	return s.do(req, "connect", "")
}

func (s *Server) RootDir(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url("rootdir", nil), nil)
	if err != nil {
		return "", err
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return "", &htdeploy.ServerError{Op: "rootDir", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &htdeploy.ServerError{Op: "rootDir", Err: statusErr(resp)}
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &htdeploy.ServerError{Op: "rootDir", Err: err}
	}
	return string(b), nil
}

func (s *Server) ReadFile(ctx context.Context, remotePath htdeploy.Path, localDest string) error {
	v := url.Values{"path": {string(remotePath)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url("readfile", v), nil)
	if err != nil {
		return err
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return &htdeploy.ServerError{Op: "readFile", Path: remotePath, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &htdeploy.ServerError{Op: "readFile", Path: remotePath, Err: statusErr(resp)}
	}

	f, err := os.Create(localDest)
	if err != nil {
		return &htdeploy.ServerError{Op: "readFile", Path: remotePath, Err: err}
	}
	defer f.Close()

	_, err = io.Copy(f, resp.Body)
	if err != nil {
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

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		defer pw.Close()
		defer mw.Close()

		part, err := mw.CreateFormFile("content", "upload")
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, f); err != nil {
			pw.CloseWithError(err)
		}
	}()

	v := url.Values{"path": {string(remotePath)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.url("writefile", v), pr)
	if err != nil {
		return &htdeploy.ServerError{Op: "writeFile", Path: remotePath, Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	if err := s.do(req, "writeFile", string(remotePath)); err != nil {
		return err
	}
	if onProgress != nil {
		onProgress(100)
	}
	return nil
}

func (s *Server) RenameFile(ctx context.Context, from, to htdeploy.Path) error {
	v := url.Values{"from": {string(from)}, "to": {string(to)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url("renamefile", v), nil)
	if err != nil {
		return err
	}
	return s.do(req, "renameFile", string(from))
}

func (s *Server) RemoveFile(ctx context.Context, path htdeploy.Path) error {
	v := url.Values{"path": {string(path)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.url("removefile", v), nil)
	if err != nil {
		return err
	}
	return s.do(req, "removeFile", string(path))
}

func (s *Server) RemoveDir(ctx context.Context, path htdeploy.Path) error {
	v := url.Values{"path": {string(path)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.url("removedir", v), nil)
	if err != nil {
		return err
	}
	return s.do(req, "removeDir", string(path))
}

func (s *Server) CreateDir(ctx context.Context, path htdeploy.Path) error {
	v := url.Values{"path": {string(path)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url("createdir", v), nil)
	if err != nil {
		return err
	}
	return s.do(req, "createDir", string(path))
}

func (s *Server) Purge(ctx context.Context, path htdeploy.Path, onEntry transport.OnEntry) error {
	v := url.Values{"path": {string(path)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url("purge", v), nil)
	if err != nil {
		return err
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return &htdeploy.ServerError{Op: "purge", Path: path, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &htdeploy.ServerError{Op: "purge", Path: path, Err: statusErr(resp)}
	}

	var entries []string
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return &htdeploy.ServerError{Op: "purge", Path: path, Err: err}
	}
	if onEntry != nil {
		for _, e := range entries {
			onEntry(htdeploy.Path(e))
		}
	}
	return nil
}

func (s *Server) Execute(ctx context.Context, cmd string) (string, error) {
	v := url.Values{"cmd": {cmd}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url("execute", v), nil)
	if err != nil {
		return "", err
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return "", &htdeploy.ServerError{Op: "execute", Err: err}
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &htdeploy.ServerError{Op: "execute", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &htdeploy.ServerError{Op: "execute", Err: errors.New(string(b))}
	}
	return string(b), nil
}

func (s *Server) Close() error {
	return nil
}

func (s *Server) do(req *http.Request, op, path string) error {
	resp, err := s.Client.Do(req)
	if err != nil {
		return &htdeploy.ServerError{Op: op, Path: htdeploy.Path(path), Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &htdeploy.ServerError{Op: op, Path: htdeploy.Path(path), Err: statusErr(resp)}
	}
	return nil
}

func statusErr(resp *http.Response) error {
	b, _ := io.ReadAll(resp.Body)
	if len(b) == 0 {
		return errors.Errorf("status %s", resp.Status)
	}
	return errors.Errorf("status %s: %s", resp.Status, b)
}

func init() {
	transport.Register("http", func(_ context.Context, conf map[string]interface{}) (transport.Server, error) {
		baseURL, ok := conf["url"].(string)
		if !ok {
			return nil, errors.New(`httpremote: missing "url" parameter`)
		}
		return New(baseURL, nil), nil
	})
}
