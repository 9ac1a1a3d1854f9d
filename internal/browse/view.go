package browse

import (
	"fmt"
	"strings"

	"github.com/lehigh-university-libraries/gallery/internal/catalog"
	"github.com/lehigh-university-libraries/gallery/internal/delivery"
	"github.com/lehigh-university-libraries/gallery/internal/models"
	"github.com/lehigh-university-libraries/gallery/internal/stats"
)

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Gallery"))
	b.WriteString(mutedStyle.Render(fmt.Sprintf("  %d entries", len(m.entries))))
	if m.loading() {
		b.WriteString(mutedStyle.Render("  loading uploads..."))
	}
	b.WriteString("\n")

	tabs := make([]string, len(models.FileTypes))
	for i, t := range models.FileTypes {
		if i == m.filterIdx {
			tabs[i] = activeTabStyle.Render(string(t))
		} else {
			tabs[i] = tabStyle.Render(string(t))
		}
	}
	b.WriteString(strings.Join(tabs, " "))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	if len(m.entries) == 0 {
		b.WriteString(mutedStyle.Render("No entries match"))
		b.WriteString("\n")
	}
	end := min(len(m.entries), m.top+m.rows())
	for i := m.top; i < end; i++ {
		b.WriteString(m.renderRow(i))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case m.status != "" && m.statusIsErr:
		b.WriteString(errorStyle.Render(m.status))
	case m.status != "":
		b.WriteString(statusStyle.Render(m.status))
	default:
		b.WriteString(mutedStyle.Render("j/k move  / search  tab filter  y copy link  q quit"))
	}
	return b.String()
}

func (m Model) renderRow(i int) string {
	e := m.entries[i]
	marker := "  "
	if i == m.cursor {
		marker = cursorStyle.Render("> ")
	}

	title := e.Title
	if title == "" {
		title = e.Filename()
	}
	titleWidth := 40
	if m.width > 0 {
		titleWidth = max(10, m.width/2)
	}
	title = truncate(title, titleWidth)

	badge := badgeStyle.Render(fmt.Sprintf("%-9s", catalog.Classify(e)))
	return fmt.Sprintf("%s%s %-*s %s", marker, badge, titleWidth, title, m.detail(e))
}

// detail is the delivery column of a row.
func (m Model) detail(e models.Entry) string {
	render := delivery.RenderFor(e)
	switch render {
	case delivery.RenderTicket:
		return mutedStyle.Render("HTML Ticket")
	case delivery.RenderDocument:
		return mutedStyle.Render("PDF Document")
	case delivery.RenderLink:
		return mutedStyle.Render("Visit " + e.Locator)
	case delivery.RenderDownloadOnly:
		return mutedStyle.Render("download-only file")
	}

	c, ok := m.board.Controller(e.Locator)
	if !ok {
		return ""
	}
	switch c.State() {
	case delivery.StatePending:
		return mutedStyle.Render("...")
	case delivery.StateRequested:
		return mutedStyle.Render("loading")
	case delivery.StateErrored:
		return errorStyle.Render(strings.ReplaceAll(c.Fallback(), "\n", ": "))
	}

	info := m.info[e.Locator]
	if info == nil {
		return ""
	}
	parts := []string{}
	if info.Size > 0 {
		parts = append(parts, fmt.Sprintf("%.1f MB", stats.ToMB(info.Size)))
	}
	if info.ContentType != "" {
		parts = append(parts, info.ContentType)
	}
	if e.Dimensions != nil {
		parts = append(parts, fmt.Sprintf("%dx%d", e.Dimensions.Width, e.Dimensions.Height))
	}
	return strings.Join(parts, "  ")
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 3 {
		return string(r[:width])
	}
	return string(r[:width-3]) + "..."
}
