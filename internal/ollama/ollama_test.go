package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lehigh-university-libraries/gallery/internal/providers"
)

func TestDescribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body struct {
			Model  string   `json:"model"`
			Images []string `json:"images"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if body.Model != "llava" || len(body.Images) != 1 || body.Images[0] != "cG5n" {
			t.Errorf("unexpected request: %+v", body)
		}
		_, _ = w.Write([]byte(`{"response": "A cat"}`))
	}))
	defer srv.Close()

	o := &Ollama{BaseURL: srv.URL, client: srv.Client()}
	got, err := o.Describe(context.Background(), providers.Config{Model: "llava", Prompt: "describe", Image: []byte("png")})
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if got != "A cat" {
		t.Errorf("Describe() = %q, want %q", got, "A cat")
	}
}
