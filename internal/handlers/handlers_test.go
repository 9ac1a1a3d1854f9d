package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/lehigh-university-libraries/gallery/internal/catalog"
	"github.com/lehigh-university-libraries/gallery/internal/config"
	"github.com/lehigh-university-libraries/gallery/internal/identity"
	"github.com/lehigh-university-libraries/gallery/internal/media"
	"github.com/lehigh-university-libraries/gallery/internal/models"
	"github.com/lehigh-university-libraries/gallery/internal/screens"
	"github.com/lehigh-university-libraries/gallery/internal/sources"
	"github.com/lehigh-university-libraries/gallery/internal/stats"
	"github.com/lehigh-university-libraries/gallery/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers struct{}

func (fakeUsers) CurrentUser(ctx context.Context, token string) (*identity.User, error) {
	if token != "good" {
		return nil, identity.ErrUnauthenticated
	}
	return &identity.User{ID: "u1", Email: "alice@example.com"}, nil
}

type fakeSubmitter struct {
	filename string
	data     []byte
	err      error
}

func (f *fakeSubmitter) Submit(ctx context.Context, token string, user identity.User, filename, contentType string, data []byte) error {
	f.filename = filename
	f.data = data
	return f.err
}

type fakeUploads struct {
	prefix string
}

func (f *fakeUploads) ListTree(ctx context.Context, prefix string) ([]storage.Object, error) {
	f.prefix = prefix
	return []storage.Object{{Name: "cat.png"}, {Name: ".emptyFolderPlaceholder"}, {Name: "clip.mp4"}}, nil
}

func (f *fakeUploads) PublicURL(path string) string {
	return "https://store/" + path
}

func (f *fakeUploads) Subscribe(ctx context.Context, name string, filter storage.ChangeFilter, handler func(storage.Change)) (io.Closer, error) {
	return nil, storage.ErrNotConfigured
}

type testServer struct {
	*httptest.Server
	submitter *fakeSubmitter
	uploads   *fakeUploads
	store     *catalog.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	content := fstest.MapFS{
		"index.html":     {Data: []byte("<html>gallery</html>")},
		"links.json":     {Data: []byte(`[{"link":"https://example.com","name":"Example"}]`)},
		"cdn/cat.png":    {Data: []byte("\x89PNG\r\n\x1a\ncat")},
		"cdn/dog.png":    {Data: []byte("\x89PNG\r\n\x1a\ndog")},
		"cdn/broken.mp4": {Data: nil},
	}

	cfg := config.Default()
	cfg.PriorityCount = 2
	cfg.ViewportRows = 2
	cfg.Margin = 0

	store := catalog.NewStore()
	var static []models.Entry
	for _, l := range []string{"/cdn/broken.mp4", "/cdn/cat.png", "/cdn/dog.png"} {
		e, err := models.NewEntry(models.OriginStatic, l)
		require.NoError(t, err)
		e.Title = strings.TrimSuffix(models.Filename(l), ".png")
		static = append(static, e)
	}
	store.Apply(catalog.Event{Source: catalog.SourceStatic, Entries: static})

	resolver := media.NewResolver(content, media.NewFetcher())
	ts := &testServer{submitter: &fakeSubmitter{}, uploads: &fakeUploads{}, store: store}
	h := New(Options{
		Config:  cfg,
		Catalog: store,
		Screens: screens.New(func() *sources.Loader {
			return sources.NewLoader(cfg.Tickets, nil, cfg.LinksURL, content)
		}, screens.Layout{PriorityCount: cfg.PriorityCount, ViewportRows: cfg.ViewportRows, Margin: cfg.Margin}),
		Media:   resolver,
		Stats:   stats.NewCalculator(resolver, func(l string) string { return l }),
		Users:   fakeUsers{},
		Submit:  ts.submitter,
		Uploads: ts.uploads,
		Content: content,
	})
	mux := http.NewServeMux()
	h.Routes(mux)
	ts.Server = httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func (ts *testServer) createScreen(t *testing.T) string {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/screens", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.ID)
	return body.ID
}

func (ts *testServer) get(t *testing.T, path string, header http.Header) *http.Response {
	t.Helper()
	req, err := http.NewRequest("GET", ts.URL+path, nil)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

type catalogResponse struct {
	Entries []struct {
		Entry    models.Entry `json:"entry"`
		Type     string       `json:"type"`
		Priority bool         `json:"priority"`
		State    string       `json:"state"`
		Render   string       `json:"render"`
	} `json:"entries"`
	IsLoading bool `json:"isLoading"`
}

func TestCatalogEndpoint(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createScreen(t)

	resp := ts.get(t, "/api/screens/"+id+"/catalog", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	etag := resp.Header.Get("ETag")
	require.NotEmpty(t, etag)

	var body catalogResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	var locators []string
	for _, e := range body.Entries {
		locators = append(locators, e.Entry.Locator)
	}
	assert.Equal(t, []string{"/cdn/broken.mp4", "/cdn/cat.png", "/cdn/dog.png", "/qs-5db.html", "/qs-warden.html", "https://example.com"}, locators)
	assert.Equal(t, "videos", body.Entries[0].Type)
	assert.Equal(t, "requested", body.Entries[0].State)
	assert.Equal(t, "pending", body.Entries[2].State)
	assert.Equal(t, "link", body.Entries[5].Render)

	resp = ts.get(t, "/api/screens/"+id+"/catalog", http.Header{"If-None-Match": {etag}})
	assert.Equal(t, http.StatusNotModified, resp.StatusCode)

	resp = ts.get(t, "/api/screens/"+id+"/catalog?q=DOG&type=images", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = catalogResponse{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Entries, 1)
	assert.Equal(t, "/cdn/dog.png", body.Entries[0].Entry.Locator)
	assert.NotEqual(t, etag, resp.Header.Get("ETag"))

	resp = ts.get(t, "/api/screens/"+id+"/catalog?type=pictures", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.get(t, "/api/screens/missing/catalog", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMediaGating(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createScreen(t)
	resp := ts.get(t, "/api/screens/"+id+"/catalog?type=all", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.get(t, "/api/screens/"+id+"/media?src=/cdn/cat.png", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "row 1 is a priority element")

	resp = ts.get(t, "/api/screens/"+id+"/media?src=/cdn/dog.png", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	vp, err := http.Post(ts.URL+"/api/screens/"+id+"/viewport", "application/json", strings.NewReader(`{"top":2,"height":1}`))
	require.NoError(t, err)
	defer vp.Body.Close()
	var flipped struct {
		Requested []string `json:"requested"`
	}
	require.NoError(t, json.NewDecoder(vp.Body).Decode(&flipped))
	assert.Equal(t, []string{"/cdn/dog.png"}, flipped.Requested)

	resp = ts.get(t, "/api/screens/"+id+"/media?src=/cdn/dog.png", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	resp = ts.get(t, "/api/screens/"+id+"/media?src=/cdn/broken.mp4", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	text, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "Video unavailable\nbroken.mp4", string(text))

	resp = ts.get(t, "/api/screens/"+id+"/media?src=/cdn/other.png", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteScreen(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createScreen(t)

	del := func() int {
		req, err := http.NewRequest("DELETE", ts.URL+"/api/screens/"+id, nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}
	assert.Equal(t, http.StatusNoContent, del())
	assert.Equal(t, http.StatusNotFound, del())
}

func TestStatsAndQR(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.get(t, "/api/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var s stats.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
	assert.Equal(t, 3, s.TotalEntries)
	assert.Equal(t, 0, s.Estimated)

	resp = ts.get(t, "/api/qr?src=/cdn/cat.png", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	resp = ts.get(t, "/api/qr", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = ts.get(t, "/api/qr?src=/x&size=5", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func multipartBody(t *testing.T, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestSubmission(t *testing.T) {
	ts := newTestServer(t)

	post := func(token string) *http.Response {
		body, contentType := multipartBody(t, "cat.png", []byte("png"))
		req, err := http.NewRequest("POST", ts.URL+"/api/submissions", body)
		require.NoError(t, err)
		req.Header.Set("Content-Type", contentType)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	assert.Equal(t, http.StatusUnauthorized, post("").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, post("bad").StatusCode)

	resp := post("good")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "cat.png", ts.submitter.filename)
	assert.Equal(t, []byte("png"), ts.submitter.data)

	ts.submitter.err = &storage.FunctionError{Function: "submit-upload-review", Status: 400, Message: "duplicate file"}
	resp = post("good")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	msg, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(msg), "duplicate file")
}

func TestOwnUploads(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.get(t, "/api/me/uploads", http.Header{"Authorization": {"Bearer good"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Username string   `json:"username"`
		Uploads  []string `json:"uploads"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "alice", body.Username)
	assert.Equal(t, "users/alice", ts.uploads.prefix)
	assert.Equal(t, []string{"https://store/users/alice/cat.png"}, body.Uploads)

	resp = ts.get(t, "/api/me/uploads", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStaticAndHealthcheck(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.get(t, "/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "gallery")

	resp = ts.get(t, "/links.json", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.get(t, "/healthcheck", nil)
	body, _ = io.ReadAll(resp.Body)
	assert.Equal(t, "OK", string(body))
}
