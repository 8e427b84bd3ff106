package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "htdeploy.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
root: /srv/site
transport:
  type: localfs
  params:
    root: /tmp/remote
`)
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.ManifestName != defaultManifestName {
		t.Errorf("ManifestName = %q, want default", c.ManifestName)
	}
}

func TestLoadRejectsRelativeRoot(t *testing.T) {
	path := writeConfig(t, `
root: site
transport:
  type: localfs
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for relative root")
	}
}

func TestLoadRejectsMissingTransportType(t *testing.T) {
	path := writeConfig(t, `
root: /srv/site
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing transport.type")
	}
}

func TestLoadParsesJobs(t *testing.T) {
	path := writeConfig(t, `
root: /srv/site
transport:
  type: localfs
pre_jobs:
  - "local:echo pre"
  - "remote:restart"
post_jobs:
  - "http://example.com/hook"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error: post_jobs entry missing scheme prefix")
	}
}

func TestLoadValidJobs(t *testing.T) {
	path := writeConfig(t, `
root: /srv/site
transport:
  type: localfs
pre_jobs:
  - "local:echo pre"
  - "remote:restart"
post_jobs:
  - "http:https://example.com/hook"
`)
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	pre, err := c.PreJobList()
	if err != nil {
		t.Fatal(err)
	}
	if len(pre) != 2 {
		t.Errorf("len(pre) = %d, want 2", len(pre))
	}
	post, err := c.PostJobList()
	if err != nil {
		t.Fatal(err)
	}
	if len(post) != 1 {
		t.Errorf("len(post) = %d, want 1", len(post))
	}
}
