package delivery

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/lehigh-university-libraries/gallery/internal/media"
	"github.com/lehigh-university-libraries/gallery/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mediaEntry(t *testing.T, locator string) models.Entry {
	t.Helper()
	e, err := models.NewEntry(models.OriginStatic, locator)
	require.NoError(t, err)
	return e
}

type fakeFetcher struct {
	calls int
	err   error
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*media.Payload, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &media.Payload{ContentType: "image/png", Data: []byte("png")}, nil
}

func TestPriorityStartsRequested(t *testing.T) {
	vp := NewViewport(3, 0)
	vp.Scroll(100)
	c := NewController(mediaEntry(t, "/cdn/a.png"), 50, true, vp)
	assert.Equal(t, StateRequested, c.State())
	assert.Equal(t, 0, vp.Watching())
}

func TestObserverUnavailableFailsOpen(t *testing.T) {
	c := NewController(mediaEntry(t, "/cdn/a.png"), 50, false, Unavailable{})
	assert.Equal(t, StateRequested, c.State())

	c = NewController(mediaEntry(t, "/cdn/a.png"), 50, false, nil)
	assert.Equal(t, StateRequested, c.State())
}

func TestProximityFlipsOnceAndDisconnects(t *testing.T) {
	vp := NewViewport(4, 2)
	c := NewController(mediaEntry(t, "/cdn/a.png"), 10, false, vp)
	assert.Equal(t, StatePending, c.State())
	assert.Equal(t, 1, vp.Watching())

	vp.Scroll(3)
	assert.Equal(t, StatePending, c.State(), "row 10 is outside [1, 9)")

	vp.Scroll(5)
	assert.Equal(t, StateRequested, c.State(), "row 10 is inside the margin of [5, 9)")
	assert.Equal(t, 0, vp.Watching())

	vp.Scroll(100)
	assert.Equal(t, StateRequested, c.State(), "scrolling away never re-hides")
}

func TestAlreadyNearRequestsImmediately(t *testing.T) {
	vp := NewViewport(5, 0)
	c := NewController(mediaEntry(t, "/cdn/a.png"), 2, false, vp)
	assert.Equal(t, StateRequested, c.State())
	assert.Equal(t, 0, vp.Watching())
}

func TestDeliverGatesAndErrorsAreTerminal(t *testing.T) {
	vp := NewViewport(1, 0)
	c := NewController(mediaEntry(t, "/cdn/clip.mp4"), 5, false, vp)

	f := &fakeFetcher{}
	_, err := c.Deliver(context.Background(), f, "http://x/cdn/clip.mp4")
	assert.ErrorIs(t, err, ErrNotRequested)
	assert.Equal(t, 0, f.calls)

	vp.Scroll(5)
	f.err = errors.New("decode failed")
	_, err = c.Deliver(context.Background(), f, "http://x/cdn/clip.mp4")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, StateErrored, c.State())
	assert.Equal(t, "Video unavailable\nclip.mp4", c.Fallback())

	f.err = nil
	_, err = c.Deliver(context.Background(), f, "http://x/cdn/clip.mp4")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 1, f.calls, "errored elements are never retried")

	c.Reposition(0, true, vp)
	assert.Equal(t, StateErrored, c.State())
}

func TestDeliverLoads(t *testing.T) {
	c := NewController(mediaEntry(t, "/cdn/a.png"), 0, true, nil)
	p, err := c.Deliver(context.Background(), &fakeFetcher{}, "http://x/cdn/a.png")
	require.NoError(t, err)
	assert.Equal(t, "png", string(p.Data))
	assert.Equal(t, StateLoaded, c.State())
	assert.Equal(t, "Image unavailable\na.png", c.Fallback())
}

func TestLoadedSurvivesFailedRefetch(t *testing.T) {
	c := NewController(mediaEntry(t, "/cdn/a.png"), 0, true, nil)
	f := &fakeFetcher{}
	_, err := c.Deliver(context.Background(), f, "http://x/cdn/a.png")
	require.NoError(t, err)
	require.Equal(t, StateLoaded, c.State())

	f.err = errors.New("connection reset")
	_, err = c.Deliver(context.Background(), f, "http://x/cdn/a.png")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, StateLoaded, c.State())
	assert.NoError(t, c.Err())

	c.MarkFailed(errors.New("late decode failure"))
	assert.Equal(t, StateLoaded, c.State())

	f.err = nil
	_, err = c.Deliver(context.Background(), f, "http://x/cdn/a.png")
	require.NoError(t, err)
	assert.Equal(t, 3, f.calls)
}

func TestRenderFor(t *testing.T) {
	link, _ := models.NewEntry(models.OriginExternalLink, "https://example.com/pic.png")
	ticket, _ := models.NewEntry(models.OriginHTMLDocument, "/t.html")
	doc, _ := models.NewEntry(models.OriginPDFDocument, "/d.pdf")

	tests := []struct {
		entry    models.Entry
		expected Render
	}{
		{mediaEntry(t, "/cdn/a.PNG"), RenderImage},
		{mediaEntry(t, "/cdn/a.gif"), RenderImage},
		{mediaEntry(t, "/cdn/a.mov"), RenderVideo},
		{mediaEntry(t, "/cdn/a.zip"), RenderDownloadOnly},
		{link, RenderLink},
		{ticket, RenderTicket},
		{doc, RenderDocument},
	}
	for _, tt := range tests {
		t.Run(tt.entry.Locator, func(t *testing.T) {
			assert.Equal(t, tt.expected, RenderFor(tt.entry))
		})
	}
}

func TestBoardKeepsStateAcrossRenders(t *testing.T) {
	vp := NewViewport(2, 0)
	vp.Scroll(0)
	b := NewBoard(1, vp)

	var entries []models.Entry
	for i := 0; i < 6; i++ {
		entries = append(entries, mediaEntry(t, fmt.Sprintf("/cdn/%d.png", i)))
	}
	link, _ := models.NewEntry(models.OriginExternalLink, "https://example.com")
	entries = append(entries, link)

	b.Render(entries)
	states := b.States()
	require.Len(t, states, 6, "links are not lazily delivered")
	assert.Equal(t, StateRequested, states["/cdn/0.png"])
	assert.Equal(t, StateRequested, states["/cdn/1.png"])
	assert.Equal(t, StatePending, states["/cdn/5.png"])

	c, ok := b.Controller("/cdn/1.png")
	require.True(t, ok)
	c.MarkFailed(errors.New("broken"))

	b.Render(entries)
	assert.Equal(t, StateErrored, b.States()["/cdn/1.png"])

	b.Render(entries[4:])
	states = b.States()
	assert.Len(t, states, 2)
	assert.Equal(t, StateRequested, states["/cdn/4.png"], "new first entry is priority")
	assert.Equal(t, []string{"/cdn/4.png", "/cdn/5.png"}, b.Requested())

	b.Close()
	assert.Equal(t, 0, vp.Watching())
}
