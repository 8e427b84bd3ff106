package httpremote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/bobg/htdeploy"
)

func TestRoundTrip(t *testing.T) {
	var uploaded []byte

	mux := http.NewServeMux()
	mux.HandleFunc("/connect", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/rootdir", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("/srv/www"))
	})
	mux.HandleFunc("/writefile", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("path") != "/a.txt.deploytmp" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f, _, err := r.FormFile("content")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		uploaded, _ = io.ReadAll(f)
	})
	mux.HandleFunc("/renamefile", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/readfile", func(w http.ResponseWriter, r *http.Request) {
		w.Write(uploaded)
	})
	mux.HandleFunc("/removefile", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/createdir", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/purge", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]string{"/sub/x.txt"})
	})
	mux.HandleFunc("/execute", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := New(srv.URL, nil)
	ctx := context.Background()

	if err := s.Connect(ctx); err != nil {
		t.Fatal(err)
	}
	root, err := s.RootDir(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if root != "/srv/www" {
		t.Errorf("RootDir = %q", root)
	}

	src := filepath.Join(t.TempDir(), "src.txt")
	if err := os.WriteFile(src, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteFile(ctx, src, "/a.txt.deploytmp", nil); err != nil {
		t.Fatal(err)
	}
	if string(uploaded) != "hello" {
		t.Errorf("uploaded = %q, want %q", uploaded, "hello")
	}

	if err := s.RenameFile(ctx, "/a.txt.deploytmp", "/a.txt"); err != nil {
		t.Fatal(err)
	}

	dst := filepath.Join(t.TempDir(), "dst.txt")
	if err := s.ReadFile(ctx, "/a.txt", dst); err != nil {
		t.Fatal(err)
	}
	got, _ := os.ReadFile(dst)
	if string(got) != "hello" {
		t.Errorf("downloaded = %q", got)
	}

	if err := s.RemoveFile(ctx, "/a.txt"); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateDir(ctx, "/sub/"); err != nil {
		t.Fatal(err)
	}

	var purged []htdeploy.Path
	if err := s.Purge(ctx, "/sub/", func(p htdeploy.Path) { purged = append(purged, p) }); err != nil {
		t.Fatal(err)
	}
	if len(purged) != 1 || purged[0] != "/sub/x.txt" {
		t.Errorf("purged = %v", purged)
	}

	out, err := s.Execute(ctx, "echo ok")
	if err != nil {
		t.Fatal(err)
	}
	if out != "ok" {
		t.Errorf("Execute output = %q", out)
	}
}

func TestErrorStatusWrapped(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/removefile", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("no such file"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := New(srv.URL, nil)
	err := s.RemoveFile(context.Background(), "/missing.txt")
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := err.(*htdeploy.ServerError); !ok {
		t.Errorf("got %T, want *htdeploy.ServerError", err)
	}
}
