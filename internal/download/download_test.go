package download

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/afero"
)

func testDownloader(fsys afero.Fs, retries int) *Downloader {
	return &Downloader{
		Fs:         fsys,
		CacheDir:   "/cache",
		Client:     http.DefaultClient,
		Retries:    retries,
		newBackOff: func() backoff.BackOff { return &backoff.ZeroBackOff{} },
	}
}

func TestDownload_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("archive-bytes"))
	}))
	defer srv.Close()

	fsys := afero.NewMemMapFs()
	d := testDownloader(fsys, 4)
	var progress bytes.Buffer
	d.Progress = &progress

	got, err := d.Download(context.Background(), srv.URL+"/pkg/vbcc.tar.gz", "vbcc-1.0", "")
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if want := filepath.Join("/cache", "vbcc-1.0.tar.gz"); got != want {
		t.Errorf("path = %q, want %q", got, want)
	}
	if calls != 3 {
		t.Errorf("server calls = %d, want 3", calls)
	}
	data, _ := afero.ReadFile(fsys, got)
	if string(data) != "archive-bytes" {
		t.Errorf("content = %q", data)
	}
	if !strings.Contains(progress.String(), "100%") {
		t.Errorf("progress = %q", progress.String())
	}
	if ok, _ := afero.Exists(fsys, got+".part"); ok {
		t.Error("partial file left behind")
	}
}

func TestDownload_UsesCache(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	d := testDownloader(afero.NewMemMapFs(), 0)
	for i := 0; i < 2; i++ {
		if _, err := d.Download(context.Background(), srv.URL+"/a.zip", "a", SourceHTTP); err != nil {
			t.Fatal(err)
		}
	}
	if calls != 1 {
		t.Errorf("server calls = %d, want 1", calls)
	}
}

func TestDownload_ClientErrorIsPermanent(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	d := testDownloader(afero.NewMemMapFs(), 5)
	_, err := d.Download(context.Background(), srv.URL+"/missing.zip", "missing", "")
	var status *StatusError
	if !errors.As(err, &status) || status.Code != http.StatusNotFound {
		t.Fatalf("error = %v, want 404 StatusError", err)
	}
	if calls != 1 {
		t.Errorf("server calls = %d, want no retries", calls)
	}
}

func TestDownload_GivesUpAfterRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	d := testDownloader(afero.NewMemMapFs(), 2)
	if _, err := d.Download(context.Background(), srv.URL+"/x.zip", "x", ""); err == nil {
		t.Fatal("expected an error")
	}
	if calls != 3 {
		t.Errorf("server calls = %d, want 1 + 2 retries", calls)
	}
}

func TestDownload_LocalFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	_ = afero.WriteFile(fsys, "/src/tool.zip", []byte("zip"), 0644)

	d := testDownloader(fsys, 0)
	got, err := d.Download(context.Background(), "file:///src/tool.zip", "tool", "")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(got) != "tool.zip" {
		t.Errorf("path = %q", got)
	}
}

func TestSourceKind(t *testing.T) {
	tests := map[string]string{
		"https://example.com/a.zip": SourceHTTP,
		"http://example.com/a.zip":  SourceHTTP,
		"file:///tmp/a.zip":         SourceFile,
		"/tmp/a.zip":                SourceFile,
	}
	for in, want := range tests {
		if got := SourceKind(in); got != want {
			t.Errorf("SourceKind(%q) = %q, want %q", in, got, want)
		}
	}
}
