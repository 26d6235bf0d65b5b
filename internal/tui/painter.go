// Package tui is the terminal grid painter: a bubbletea model over a loaded
// matrix view.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ryanbastic/go-chronos/internal/model"
	"github.com/ryanbastic/go-chronos/internal/view"
)

const maxCategoryKeys = 9

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Underline(true)
	labelStyle    = lipgloss.NewStyle().Faint(true)
	emptyStyle    = lipgloss.NewStyle().Faint(true)
	cursorStyle   = lipgloss.NewStyle().Reverse(true)
	selectedStyle = lipgloss.NewStyle().Bold(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#cc0000"))
)

// Painter paints one matrix.
type Painter struct {
	ctx    context.Context
	view   *view.View
	title  string
	row    int
	col    int
	status string
	err    error
}

type savedMsg struct {
	sent int
	err  error
}

type refreshedMsg struct{ err error }

// New returns a painter over v with the cursor on the first cell.
func New(ctx context.Context, v *view.View, title string) *Painter {
	return &Painter{ctx: ctx, view: v, title: title}
}

// Run blocks until the user quits. Pending edits are saved on the way out.
func Run(ctx context.Context, v *view.View, title string) error {
	p := tea.NewProgram(New(ctx, v, title), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return err
	}
	if _, err := v.Save(ctx); err != nil {
		return fmt.Errorf("save on exit: %w", err)
	}
	return nil
}

func (p *Painter) Init() tea.Cmd { return nil }

// Cursor returns the (date row, slot column) under the cursor.
func (p *Painter) Cursor() (row, col int) { return p.row, p.col }

func (p *Painter) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case savedMsg:
		p.err = m.err
		switch {
		case m.err != nil:
			p.status = ""
		case m.sent == 0:
			p.status = "nothing to save"
		default:
			p.status = fmt.Sprintf("saved %d cells", m.sent)
		}
		return p, nil
	case refreshedMsg:
		p.err = m.err
		if m.err == nil {
			p.status = "refreshed"
			p.clampCursor()
		}
		return p, nil
	case tea.KeyMsg:
		return p.handleKey(m)
	}
	return p, nil
}

func (p *Painter) handleKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	layout := p.view.Layout()
	switch key := m.String(); key {
	case "q", "ctrl+c":
		return p, tea.Quit
	case "up", "k":
		if p.row > 0 {
			p.row--
		}
	case "down", "j":
		if p.row < layout.NumRows()-1 {
			p.row++
		}
	case "left", "h":
		if p.col > 0 {
			p.col--
		}
	case "right", "l":
		if p.col < layout.NumColumns()-1 {
			p.col++
		}
	case " ", "enter":
		if p.view.Selected() == nil {
			p.status = "select a category first"
			return p, nil
		}
		p.view.PaintAt(p.row, p.col)
		p.status = ""
	case "esc", "0":
		p.view.Deselect()
		p.status = ""
	case "s":
		p.status = "saving..."
		return p, p.saveCmd()
	case "r":
		return p, p.refreshCmd()
	default:
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			p.selectCategory(int(key[0] - '1'))
		}
	}
	return p, nil
}

func (p *Painter) selectCategory(pos int) {
	cats := p.view.Categories()
	if pos >= len(cats) {
		return
	}
	if err := p.view.Select(cats[pos].ID); err != nil {
		p.err = err
		return
	}
	p.status = "painting with " + cats[pos].Name
}

func (p *Painter) clampCursor() {
	layout := p.view.Layout()
	p.row = max(0, min(p.row, layout.NumRows()-1))
	p.col = max(0, min(p.col, layout.NumColumns()-1))
}

func (p *Painter) saveCmd() tea.Cmd {
	return func() tea.Msg {
		n, err := p.view.Save(p.ctx)
		return savedMsg{sent: n, err: err}
	}
}

func (p *Painter) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		return refreshedMsg{err: p.view.Refresh(p.ctx)}
	}
}

func (p *Painter) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(p.title))
	b.WriteString("\n\n")
	b.WriteString(p.renderGrid())
	b.WriteString("\n")
	b.WriteString(p.renderLegend())
	b.WriteString("\n")
	b.WriteString(p.renderFooter())
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("[arrows] move  [1-9] category  [0] none  [space] paint  [s] save  [r] refresh  [q] quit"))
	return b.String()
}

func (p *Painter) renderGrid() string {
	layout := p.view.Layout()
	if layout.TotalCells() == 0 {
		return labelStyle.Render("(empty matrix)") + "\n"
	}
	var b strings.Builder
	for row, date := range layout.Dates {
		b.WriteString(labelStyle.Render(date.Format("Mon 01-02")))
		b.WriteString(" ")
		for col := range layout.TimeSlots {
			idx, _ := layout.Index(row, col)
			b.WriteString(p.renderCell(p.view.Render(idx), row == p.row && col == p.col))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (p *Painter) renderCell(color string, cursor bool) string {
	if cursor {
		return cursorStyle.Render("[]")
	}
	if color == model.Unfilled {
		return emptyStyle.Render("··")
	}
	return lipgloss.NewStyle().Background(lipgloss.Color(color)).Render("  ")
}

func (p *Painter) renderLegend() string {
	cats := p.view.Categories()
	if len(cats) == 0 {
		return labelStyle.Render("no categories")
	}
	selected := p.view.Selected()
	parts := make([]string, 0, len(cats))
	for i, c := range cats {
		if i >= maxCategoryKeys {
			break
		}
		swatch := lipgloss.NewStyle().Background(lipgloss.Color(c.Color)).Render("  ")
		label := fmt.Sprintf("%d %s %s", i+1, swatch, c.Name)
		if selected != nil && selected.ID == c.ID {
			label = selectedStyle.Render("> " + label)
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, "  ")
}

func (p *Painter) renderFooter() string {
	layout := p.view.Layout()
	stats := p.view.Stats()

	var b strings.Builder
	if idx, ok := layout.Index(p.row, p.col); ok {
		date, slot, _ := layout.Coordinate(idx)
		fmt.Fprintf(&b, "%s %s-%s  ", date.Format(model.DateLayout), slot, layout.SlotEnd(p.col))
	}
	fmt.Fprintf(&b, "filled %d/%d (%d%%)", stats.FilledCount, stats.TotalCells, stats.Percentage)
	if stats.Top != nil {
		fmt.Fprintf(&b, "  top: %s", stats.Top.Name)
	}
	switch {
	case p.view.Saving():
		b.WriteString("  [saving]")
	case p.view.HasChanges():
		b.WriteString("  [unsaved]")
	}
	if p.err != nil {
		b.WriteString("\n" + errorStyle.Render(p.err.Error()))
	} else if p.status != "" {
		b.WriteString("\n" + p.status)
	}
	if err := p.view.ReloadErr(); err != nil {
		b.WriteString("\n" + errorStyle.Render("saved, but the grid may be out of date (press r): "+err.Error()))
	}
	return b.String()
}
