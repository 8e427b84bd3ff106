package deployctl

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bobg/htdeploy"
	"github.com/bobg/htdeploy/job"
	"github.com/bobg/htdeploy/manifest"
	"github.com/bobg/htdeploy/transport/transporttest"
)

var errBoom = errors.New("boom")

func writeLocalFile(t *testing.T, root, relPath, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func newDeployer(t *testing.T, root string, server *transporttest.Server) *Deployer {
	t.Helper()
	return &Deployer{
		Server:       server,
		Root:         root,
		ManifestName: ".htdeployment",
		AllowDelete:  true,
		TempDir:      t.TempDir(),
	}
}

func TestDeployFirstRun(t *testing.T) {
	root := t.TempDir()
	writeLocalFile(t, root, "a.txt", "hello")
	writeLocalFile(t, root, "sub/b.txt", "world")

	server := transporttest.New()
	d := newDeployer(t, root, server)

	if err := d.Deploy(context.Background()); err != nil {
		t.Fatal(err)
	}

	for _, p := range []htdeploy.Path{"/a.txt", "/sub/", "/sub/b.txt", "/.htdeployment"} {
		if !server.Has(p) {
			t.Errorf("remote missing %s", p)
		}
	}

	content, ok := server.Content("/a.txt")
	if !ok || string(content) != "hello" {
		t.Errorf("a.txt content = %q, %v", content, ok)
	}

	mBytes, ok := server.Content("/.htdeployment")
	if !ok {
		t.Fatal("manifest not uploaded")
	}
	m, err := manifest.Decode(mBytes)
	if err != nil {
		t.Fatal(err)
	}
	want := htdeploy.FileMap{
		"/a.txt":     htdeploy.FingerprintBytes([]byte("hello")),
		"/sub/":      htdeploy.DIR,
		"/sub/b.txt": htdeploy.FingerprintBytes([]byte("world")),
	}
	if !m.Equal(want) {
		t.Errorf("decoded manifest = %#v, want %#v", m, want)
	}
}

func TestDeployIdempotent(t *testing.T) {
	root := t.TempDir()
	writeLocalFile(t, root, "a.txt", "hello")

	server := transporttest.New()
	d := newDeployer(t, root, server)

	if err := d.Deploy(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := d.Deploy(context.Background()); err != nil {
		t.Fatal(err)
	}

	if server.Has("/.htdeployment.running") {
		t.Error("running marker left behind")
	}
}

func TestDeployUpdatesChangedFileAndDeletesRemoved(t *testing.T) {
	root := t.TempDir()
	writeLocalFile(t, root, "a.txt", "hello")
	writeLocalFile(t, root, "b.txt", "keep me")

	server := transporttest.New()
	d := newDeployer(t, root, server)
	if err := d.Deploy(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(filepath.Join(root, "b.txt")); err != nil {
		t.Fatal(err)
	}
	writeLocalFile(t, root, "a.txt", "goodbye")

	if err := d.Deploy(context.Background()); err != nil {
		t.Fatal(err)
	}

	content, _ := server.Content("/a.txt")
	if string(content) != "goodbye" {
		t.Errorf("a.txt content = %q, want goodbye", content)
	}
	if server.Has("/b.txt") {
		t.Error("b.txt should have been deleted")
	}
}

func TestDeployTestModeMakesNoChanges(t *testing.T) {
	root := t.TempDir()
	writeLocalFile(t, root, "a.txt", "hello")

	server := transporttest.New()
	d := newDeployer(t, root, server)
	d.TestMode = true

	if err := d.Deploy(context.Background()); err != nil {
		t.Fatal(err)
	}

	if server.Has("/a.txt") {
		t.Error("test mode must not upload anything")
	}
	if server.Has("/.htdeployment.running") {
		t.Error("test mode must not write a running marker")
	}
}

func TestDeployPurgesConfiguredPaths(t *testing.T) {
	root := t.TempDir()
	writeLocalFile(t, root, "a.txt", "hello")

	server := transporttest.New()
	if err := server.CreateDir(context.Background(), "/cache/"); err != nil {
		t.Fatal(err)
	}
	if err := server.WriteFile(context.Background(), writeTempFile(t, "stale"), "/cache/stale.txt", nil); err != nil {
		t.Fatal(err)
	}

	d := newDeployer(t, root, server)
	d.AllowDelete = false
	d.PurgePaths = []string{"/cache/"}

	if err := d.Deploy(context.Background()); err != nil {
		t.Fatal(err)
	}

	if server.Has("/cache/stale.txt") {
		t.Error("purge path should have been emptied")
	}
	if !server.Has("/cache/") {
		t.Error("purge must not remove the path itself")
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "src")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDeployRunsPreAndPostJobsInOrder(t *testing.T) {
	root := t.TempDir()
	writeLocalFile(t, root, "a.txt", "hello")

	server := transporttest.New()
	d := newDeployer(t, root, server)

	var order []string
	pre := job.NewCallback(func(ctx context.Context) error {
		order = append(order, "pre")
		if server.Has("/a.txt") {
			t.Error("pre job ran after the upload phase")
		}
		return nil
	})
	post := job.NewCallback(func(ctx context.Context) error {
		order = append(order, "post")
		if !server.Has("/a.txt") {
			t.Error("post job ran before the upload phase committed")
		}
		return nil
	})

	d.PreJobs = []job.Job{pre}
	d.PostJobs = []job.Job{post}

	if err := d.Deploy(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := []string{"pre", "post"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestDeployAbortsOnPostJobFailure(t *testing.T) {
	root := t.TempDir()
	writeLocalFile(t, root, "a.txt", "hello")

	server := transporttest.New()
	d := newDeployer(t, root, server)
	d.PostJobs = []job.Job{job.NewCallback(func(ctx context.Context) error {
		return errBoom
	})}

	if err := d.Deploy(context.Background()); err == nil {
		t.Fatal("expected error from failing post job")
	}
	if !server.Has("/.htdeployment.running") {
		t.Error("running marker should remain after an aborted deploy")
	}
}
