package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"testing/fstest"

	"github.com/lehigh-university-libraries/gallery/internal/catalog"
	"github.com/lehigh-university-libraries/gallery/internal/config"
	"github.com/lehigh-university-libraries/gallery/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docs(calls *atomic.Int32) DocumentFunc {
	return func(ctx context.Context) ([]models.Entry, error) {
		calls.Add(1)
		e, _ := models.NewEntry(models.OriginPDFDocument, "/guide.pdf")
		return []models.Entry{e}, nil
	}
}

func sourcesOf(events []catalog.Event) []catalog.Source {
	var out []catalog.Source
	for _, ev := range events {
		out = append(out, ev.Source)
	}
	return out
}

func TestActivateOnlyWhatFilterNeeds(t *testing.T) {
	var docCalls atomic.Int32
	fsys := fstest.MapFS{"links.json": {Data: []byte(`[{"link":"https://example.com","name":"Example"}]`)}}
	l := NewLoader(config.Default().Tickets, docs(&docCalls), "/links.json", fsys)

	assert.Empty(t, l.Activate(context.Background(), models.TypeImages))

	events := l.Activate(context.Background(), models.TypeDocuments)
	assert.Equal(t, []catalog.Source{catalog.SourceDocuments}, sourcesOf(events))

	events = l.Activate(context.Background(), models.TypeAll)
	assert.ElementsMatch(t, []catalog.Source{catalog.SourceTickets, catalog.SourceLinks}, sourcesOf(events))

	assert.Empty(t, l.Activate(context.Background(), models.TypeAll), "cached sources are not reloaded")
	assert.Equal(t, int32(1), docCalls.Load())

	cached := l.Cached()
	require.Len(t, cached, 3)
	assert.Equal(t, catalog.SourceTickets, cached[0].Source)
	assert.Equal(t, catalog.SourceLinks, cached[2].Source)

	link := cached[2].Entries[0]
	assert.Equal(t, models.OriginExternalLink, link.Origin())
	assert.Equal(t, "Link to Example", link.AltText)
	assert.Equal(t, []string{"link", "external"}, link.Tags)

	l.Release()
	assert.Empty(t, l.Cached())
}

func TestActivateFetchesRemoteLinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"link":"https://a.example","name":"A"},{"link":"","name":"blank"},{"link":"https://b.example","name":"B"}]`))
	}))
	defer srv.Close()

	l := NewLoader(nil, nil, srv.URL+"/links.json", nil)
	events := l.Activate(context.Background(), models.TypeLinks)
	require.Len(t, events, 1)
	require.Len(t, events[0].Entries, 2)
	assert.Equal(t, "https://a.example", events[0].Entries[0].Locator)
	assert.Equal(t, "B", events[0].Entries[1].Title)
}

func TestActivateFailureIsRetried(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	l := NewLoader(nil, func(ctx context.Context) ([]models.Entry, error) {
		if fail.Load() {
			return nil, errors.New("disk gone")
		}
		return nil, nil
	}, "", nil)

	assert.Empty(t, l.Activate(context.Background(), models.TypeDocuments))
	fail.Store(false)
	assert.Len(t, l.Activate(context.Background(), models.TypeDocuments), 1)
}

func TestTickets(t *testing.T) {
	entries, err := Tickets(config.Default().Tickets)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "/qs-5db.html", entries[0].Locator)
	assert.Equal(t, models.TypeTickets, catalog.Classify(entries[0]))

	_, err = Tickets([]config.Ticket{{Title: "broken"}})
	assert.Error(t, err)
}
