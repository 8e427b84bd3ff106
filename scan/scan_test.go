package scan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bobg/htdeploy"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestScanBasic(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "hello")
	writeFile(t, filepath.Join(root, "sub", "b.txt"), "")

	s := &Scanner{Root: root}
	m, err := s.Scan()
	if err != nil {
		t.Fatal(err)
	}

	want := htdeploy.FileMap{
		"/a.txt":     htdeploy.FingerprintBytes([]byte("hello")),
		"/sub/":      htdeploy.DIR,
		"/sub/b.txt": htdeploy.FingerprintBytes([]byte("")),
	}
	if !m.Equal(want) {
		t.Errorf("got %v, want %v", m, want)
	}
}

func TestScanIgnoresMatchingPaths(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.log"), "x")
	writeFile(t, filepath.Join(root, "keep.log"), "y")
	writeFile(t, filepath.Join(root, "node_modules", "pkg.js"), "z")

	s := &Scanner{
		Root:           root,
		IgnorePatterns: []string{"*.log", "!keep.log", "node_modules/"},
	}
	m, err := s.Scan()
	if err != nil {
		t.Fatal(err)
	}

	want := htdeploy.FileMap{
		"/keep.log": htdeploy.FingerprintBytes([]byte("y")),
	}
	if !m.Equal(want) {
		t.Errorf("got %v, want %v", m, want)
	}
}

func TestScanDirectoryClosure(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "b", "c.txt"), "x")

	s := &Scanner{Root: root}
	m, err := s.Scan()
	if err != nil {
		t.Fatal(err)
	}

	for _, p := range []htdeploy.Path{"/a/", "/a/b/"} {
		if m[p] != htdeploy.DIR {
			t.Errorf("m[%s] = %v, want DIR", p, m[p])
		}
	}
}

func TestScanSkipsUnreadableFile(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("root ignores file permissions")
	}

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "hello")
	blocked := filepath.Join(root, "blocked.txt")
	writeFile(t, blocked, "secret")
	if err := os.Chmod(blocked, 0); err != nil {
		t.Fatal(err)
	}
	defer os.Chmod(blocked, 0644)

	s := &Scanner{Root: root}
	m, err := s.Scan()
	if err != nil {
		t.Fatal(err)
	}

	want := htdeploy.FileMap{
		"/a.txt": htdeploy.FingerprintBytes([]byte("hello")),
	}
	if !m.Equal(want) {
		t.Errorf("got %v, want %v", m, want)
	}
}

type upcaseFilter struct{}

func (upcaseFilter) Preprocess(absPath, relPath string) (string, error) {
	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", err
	}
	out := absPath + ".pp"
	upper := make([]byte, len(content))
	for i, b := range content {
		if b >= 'a' && b <= 'z' {
			b -= 'a' - 'A'
		}
		upper[i] = b
	}
	if err := os.WriteFile(out, upper, 0644); err != nil {
		return "", err
	}
	return out, nil
}

func TestScanUsesPreprocessedContentForFingerprint(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "hello")

	s := &Scanner{Root: root, Preprocessor: upcaseFilter{}}
	m, err := s.Scan()
	if err != nil {
		t.Fatal(err)
	}

	want := htdeploy.FingerprintBytes([]byte("HELLO"))
	if m["/a.txt"] != want {
		t.Errorf("got %v, want %v", m["/a.txt"], want)
	}
}
