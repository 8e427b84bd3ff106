package gcs

import (
	"context"
	"testing"

	"github.com/bobg/htdeploy"
	"github.com/bobg/htdeploy/transport"
)

func TestObjName(t *testing.T) {
	s := &Server{}
	cases := map[htdeploy.Path]string{
		"/a.txt":     "a.txt",
		"/sub/b.txt": "sub/b.txt",
		"/":          "",
	}
	for path, want := range cases {
		if got := s.objName(path); got != want {
			t.Errorf("objName(%s) = %q, want %q", path, got, want)
		}
	}
}

func TestDirOpsAreNoops(t *testing.T) {
	s := &Server{}
	if err := s.CreateDir(context.Background(), "/sub/"); err != nil {
		t.Errorf("CreateDir: %v", err)
	}
	if err := s.RemoveDir(context.Background(), "/sub/"); err != nil {
		t.Errorf("RemoveDir: %v", err)
	}
}

func TestExecuteUnsupported(t *testing.T) {
	s := &Server{}
	if _, err := s.Execute(context.Background(), "echo hi"); err == nil {
		t.Error("expected error: gcs does not support execute")
	}
}

var _ transport.Server = &Server{}
