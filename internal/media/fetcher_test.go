package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.gif":
			w.Header().Set("Content-Type", "image/gif")
			_, _ = w.Write([]byte("GIF89a"))
		case "/empty.png":
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewFetcher()
	p, err := f.Fetch(context.Background(), srv.URL+"/ok.gif")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if p.ContentType != "image/gif" || string(p.Data) != "GIF89a" {
		t.Errorf("Unexpected payload: %+v", p)
	}

	if _, err := f.Fetch(context.Background(), srv.URL+"/missing.png"); err == nil {
		t.Error("Expected error for 404")
	}
	if _, err := f.Fetch(context.Background(), srv.URL+"/empty.png"); err == nil {
		t.Error("Expected error for empty body")
	}
}

func TestHead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "HEAD" {
			t.Errorf("Expected HEAD, got %s", r.Method)
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", "2048")
	}))
	defer srv.Close()

	info, err := NewFetcher().Head(context.Background(), srv.URL+"/a.png")
	if err != nil {
		t.Fatalf("Head failed: %v", err)
	}
	if info.Size != 2048 || info.ContentType != "image/png" {
		t.Errorf("Unexpected info: %+v", info)
	}
}
