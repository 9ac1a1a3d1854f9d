// Package browse is the terminal catalog browser.
package browse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/lehigh-university-libraries/gallery/internal/catalog"
	"github.com/lehigh-university-libraries/gallery/internal/delivery"
	"github.com/lehigh-university-libraries/gallery/internal/media"
	"github.com/lehigh-university-libraries/gallery/internal/models"
	"github.com/lehigh-university-libraries/gallery/internal/query"
	"github.com/lehigh-university-libraries/gallery/internal/sources"
)

// headerLines is the number of rows above the list.
const headerLines = 4

// footerLines is the number of rows below the list.
const footerLines = 2

// Sizer looks up media metadata without downloading the body
type Sizer interface {
	Head(ctx context.Context, locator string) (*media.Info, error)
}

// Options configure the browser
type Options struct {
	Store         *catalog.Store
	Loader        *sources.Loader
	Sizer         Sizer
	AbsoluteURL   func(locator string) string
	Loading       func() bool
	PriorityCount int
	ViewportRows  int
	Margin        int
	Filter        models.FileType
	Query         string
}

type catalogChangedMsg struct{}

type auxLoadedMsg struct{}

type infoMsg struct {
	locator string
	info    *media.Info
	err     error
}

type statusClearMsg struct {
	id int
}

type Model struct {
	ctx      context.Context
	store    *catalog.Store
	loader   *sources.Loader
	sizer    Sizer
	absURL   func(string) string
	loading  func() bool
	changes  <-chan struct{}
	viewport *delivery.Viewport
	board    *delivery.Board

	input     textinput.Model
	filterIdx int
	entries   []models.Entry
	cursor    int
	top       int
	width     int
	height    int

	info     map[string]*media.Info
	fetching map[string]bool

	status      string
	statusIsErr bool
	statusID    int
	copyFn      func(string) error
}

func NewModel(ctx context.Context, opts Options) Model {
	input := textinput.New()
	input.Placeholder = "Search title, filename, tags..."
	input.Prompt = "/ "
	input.CharLimit = 200
	input.SetValue(opts.Query)

	filterIdx := 0
	for i, t := range models.FileTypes {
		if t == opts.Filter {
			filterIdx = i
		}
	}

	absURL := opts.AbsoluteURL
	if absURL == nil {
		absURL = func(l string) string { return l }
	}
	loading := opts.Loading
	if loading == nil {
		loading = func() bool { return false }
	}

	// Replaced by the terminal height on the first resize.
	vp := delivery.NewViewport(opts.ViewportRows, opts.Margin)
	return Model{
		ctx:       ctx,
		store:     opts.Store,
		loader:    opts.Loader,
		sizer:     opts.Sizer,
		absURL:    absURL,
		loading:   loading,
		changes:   opts.Store.Changes(),
		viewport:  vp,
		board:     delivery.NewBoard(opts.PriorityCount, vp),
		input:     input,
		filterIdx: filterIdx,
		info:      make(map[string]*media.Info),
		fetching:  make(map[string]bool),
		copyFn:    clipboard.WriteAll,
	}
}

func (m Model) filter() models.FileType {
	return models.FileTypes[m.filterIdx]
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.activate(), m.waitForChange())
}

// activate loads the auxiliary sources the current filter needs.
func (m Model) activate() tea.Cmd {
	loader, filter, ctx := m.loader, m.filter(), m.ctx
	return func() tea.Msg {
		loader.Activate(ctx, filter)
		return auxLoadedMsg{}
	}
}

func (m Model) waitForChange() tea.Cmd {
	changes, ctx := m.changes, m.ctx
	return func() tea.Msg {
		select {
		case <-changes:
			return catalogChangedMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Resize(m.rows())
		cmd := m.deliver()
		return m, cmd
	case catalogChangedMsg:
		cmd := m.refresh()
		return m, tea.Batch(cmd, m.waitForChange())
	case auxLoadedMsg:
		cmd := m.refresh()
		return m, cmd
	case infoMsg:
		delete(m.fetching, msg.locator)
		c, ok := m.board.Controller(msg.locator)
		if !ok {
			return m, nil
		}
		if msg.err != nil {
			c.MarkFailed(msg.err)
			return m, nil
		}
		m.info[msg.locator] = msg.info
		c.MarkLoaded()
		return m, nil
	case statusClearMsg:
		if msg.id == m.statusID {
			m.status = ""
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}

	if m.input.Focused() {
		switch key {
		case "enter", "esc":
			m.input.Blur()
			return m, nil
		case "tab", "shift+tab":
		default:
			before := m.input.Value()
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			if m.input.Value() != before {
				m.cursor, m.top = 0, 0
				m.viewport.Scroll(0)
				refresh := m.refresh()
				return m, tea.Batch(cmd, refresh)
			}
			return m, cmd
		}
	}

	switch key {
	case "q":
		return m, tea.Quit
	case "/", "i":
		cmd := m.input.Focus()
		return m, cmd
	case "tab":
		m.filterIdx = (m.filterIdx + 1) % len(models.FileTypes)
		return m.filterChanged()
	case "shift+tab":
		m.filterIdx = (m.filterIdx + len(models.FileTypes) - 1) % len(models.FileTypes)
		return m.filterChanged()
	case "up", "k":
		return m.moveTo(m.cursor - 1)
	case "down", "j":
		return m.moveTo(m.cursor + 1)
	case "pgup", "ctrl+u":
		return m.moveTo(m.cursor - m.rows())
	case "pgdown", "ctrl+d":
		return m.moveTo(m.cursor + m.rows())
	case "home", "g":
		return m.moveTo(0)
	case "end", "G":
		return m.moveTo(len(m.entries) - 1)
	case "y", "c":
		cmd := m.copySelected()
		return m, cmd
	case "esc":
		if m.input.Value() != "" {
			m.input.SetValue("")
			cmd := m.refresh()
			return m, cmd
		}
	}
	return m, nil
}

func (m Model) filterChanged() (tea.Model, tea.Cmd) {
	m.cursor, m.top = 0, 0
	m.viewport.Scroll(0)
	cmd := m.refresh()
	return m, tea.Batch(cmd, m.activate())
}

func (m Model) moveTo(cursor int) (tea.Model, tea.Cmd) {
	if len(m.entries) == 0 {
		return m, nil
	}
	m.cursor = max(0, min(cursor, len(m.entries)-1))
	rows := m.rows()
	switch {
	case m.cursor < m.top:
		m.top = m.cursor
	case m.cursor >= m.top+rows:
		m.top = m.cursor - rows + 1
	}
	m.viewport.Scroll(m.top)
	cmd := m.deliver()
	return m, cmd
}

func (m Model) rows() int {
	if m.height == 0 {
		return 10
	}
	return max(1, m.height-headerLines-footerLines)
}

// refresh re-runs the query over the shared state plus the cached auxiliary
// sources and renders the result.
func (m *Model) refresh() tea.Cmd {
	state := m.store.Current()
	for _, ev := range m.loader.Cached() {
		state = catalog.Reduce(state, ev)
	}
	opts := query.Options{Text: m.input.Value(), Type: m.filter()}
	m.entries = query.Filter(state.Snapshot(opts.Type), opts)
	if m.cursor >= len(m.entries) {
		m.cursor = max(0, len(m.entries)-1)
	}
	m.board.Render(m.entries)
	return m.deliver()
}

// deliver starts a metadata lookup for every requested element.
func (m *Model) deliver() tea.Cmd {
	var cmds []tea.Cmd
	for _, locator := range m.board.Requested() {
		if m.fetching[locator] {
			continue
		}
		m.fetching[locator] = true
		cmds = append(cmds, m.headCmd(locator))
	}
	return tea.Batch(cmds...)
}

func (m Model) headCmd(locator string) tea.Cmd {
	sizer, ctx := m.sizer, m.ctx
	return func() tea.Msg {
		if sizer == nil {
			return infoMsg{locator: locator, info: &media.Info{}}
		}
		info, err := sizer.Head(ctx, locator)
		return infoMsg{locator: locator, info: info, err: err}
	}
}

func (m *Model) copySelected() tea.Cmd {
	if len(m.entries) == 0 {
		return nil
	}
	url := m.absURL(m.entries[m.cursor].Locator)
	if err := m.copyFn(url); err != nil {
		return m.setStatus(fmt.Sprintf("Copy failed: %v", err), true)
	}
	return m.setStatus("Copied "+url, false)
}

func (m *Model) setStatus(msg string, isErr bool) tea.Cmd {
	m.status = msg
	m.statusIsErr = isErr
	m.statusID++
	id := m.statusID
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return statusClearMsg{id: id}
	})
}

// Run starts the browser and blocks until it exits.
func Run(ctx context.Context, opts Options) error {
	p := tea.NewProgram(NewModel(ctx, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
