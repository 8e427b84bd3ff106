// Package job implements the pre/post deploy job runner: a tagged
// union of local-shell, remote-shell, HTTP GET, and callback jobs,
// executed sequentially with any failure aborting the deploy.
package job

import (
	"context"
	"net/http"
	"net/url"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

// Kind identifies which variant of Job a value holds.
type Kind int

const (
	// Local runs Cmd in the local shell.
	Local Kind = iota
	// Remote runs Cmd on the transport.Server.
	Remote
	// HTTP performs a GET against URL.
	HTTP
	// Callback invokes Fn.
	Callback
)

// CallbackFunc is a user-supplied callback job. A non-nil error
// signals failure.
type CallbackFunc func(ctx context.Context) error

// Job is a tagged value describing one pre- or post-deploy step.
type Job struct {
	Kind Kind
	Cmd  string // Local, Remote
	URL  string // HTTP
	Fn   CallbackFunc
	// raw is the original scheme-prefixed string, used for error
	// messages.
	raw string
}

// String returns the job's original scheme-prefixed specification, or
// "callback" for callback jobs.
func (j Job) String() string {
	if j.Kind == Callback {
		return "callback"
	}
	return j.raw
}

// Parse parses one scheme-prefixed job specification:
// "local:<cmd>", "remote:<cmd>", or "http:<url>", where <url> must be
// an absolute URL with a scheme and host.
func Parse(s string) (Job, error) {
	switch {
	case strings.HasPrefix(s, "local:"):
		return Job{Kind: Local, Cmd: strings.TrimPrefix(s, "local:"), raw: s}, nil
	case strings.HasPrefix(s, "remote:"):
		return Job{Kind: Remote, Cmd: strings.TrimPrefix(s, "remote:"), raw: s}, nil
	case strings.HasPrefix(s, "http:"):
		u := strings.TrimPrefix(s, "http:")
		if parsed, err := url.Parse(u); err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return Job{}, errors.Errorf("invalid job specification %q (want http:<absolute URL>)", s)
		}
		return Job{Kind: HTTP, URL: u, raw: s}, nil
	default:
		return Job{}, errors.Errorf("unrecognized job specification %q (want local:, remote:, or http: prefix)", s)
	}
}

// NewCallback wraps fn as a Callback job.
func NewCallback(fn CallbackFunc) Job {
	return Job{Kind: Callback, Fn: fn}
}

// RemoteExecutor runs a command on the transport.Server. It is the
// minimal surface job.Runner needs from a transport.Server.
type RemoteExecutor interface {
	Execute(ctx context.Context, cmd string) (string, error)
}

// Runner executes Job lists sequentially.
type Runner struct {
	Remote RemoteExecutor
}

// Run executes jobs in order. The first failure aborts and is
// returned wrapped with the failing job's specification; no
// subsequent job runs.
func (r *Runner) Run(ctx context.Context, jobs []Job) error {
	for _, j := range jobs {
		if err := r.run(ctx, j); err != nil {
			return errors.Wrapf(err, "running job %s", j)
		}
	}
	return nil
}

func (r *Runner) run(ctx context.Context, j Job) error {
	switch j.Kind {
	case Local:
		return runLocal(ctx, j.Cmd)
	case Remote:
		if r.Remote == nil {
			return errors.New("no remote executor configured")
		}
		_, err := r.Remote.Execute(ctx, j.Cmd)
		return err
	case HTTP:
		return runHTTP(ctx, j.URL)
	case Callback:
		return j.Fn(ctx)
	default:
		return errors.Errorf("unknown job kind %d", j.Kind)
	}
}

func runLocal(ctx context.Context, cmd string) error {
	c := exec.CommandContext(ctx, "sh", "-c", cmd)
	out, err := c.CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "local command failed: %s", out)
	}
	return nil
}

func runHTTP(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrapf(err, "building request for %s", url)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "GET %s", url)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return errors.Errorf("GET %s: status %s", url, resp.Status)
	}
	return nil
}

// IsLocal reports whether j is a "local:" job.
func (j Job) IsLocal() bool {
	return j.Kind == Local
}

// Partition splits jobs into local jobs and all others, preserving
// relative order within each group. When used as
// the pre-deploy list, local jobs run before the Server is contacted
// for any mutation, and the remaining jobs run after the running
// marker is created.
func Partition(jobs []Job) (local, rest []Job) {
	for _, j := range jobs {
		if j.IsLocal() {
			local = append(local, j)
		} else {
			rest = append(rest, j)
		}
	}
	return local, rest
}
