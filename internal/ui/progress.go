// Package ui renders build progress in the terminal.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"ember/internal/driver"
)

const labelWidth = 12

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	busyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	idleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
)

// Share of a unit's work that is complete once it enters a stage.
var stageShare = map[driver.Stage]float64{
	driver.StageDecode:   0.1,
	driver.StageCache:    0.2,
	driver.StageGenerate: 0.5,
	driver.StageWrite:    0.9,
}

var workingLabel = map[driver.Stage]string{
	driver.StageDecode:   "decoding",
	driver.StageCache:    "cache",
	driver.StageGenerate: "generating",
	driver.StageWrite:    "writing",
	driver.StageMerge:    "merging",
}

type unitRow struct {
	name    string
	status  string
	stage   driver.Stage
	state   driver.Status
	elapsed time.Duration
	err     error
}

func (r *unitRow) finished() bool {
	switch r.state {
	case driver.StatusDone, driver.StatusCached, driver.StatusError:
		return true
	}
	return false
}

func (r *unitRow) share() float64 {
	if r.finished() {
		return 1
	}
	return stageShare[r.stage]
}

func (r *unitRow) style() lipgloss.Style {
	switch r.state {
	case driver.StatusDone, driver.StatusCached:
		return okStyle
	case driver.StatusError:
		return failStyle
	case driver.StatusWorking:
		return busyStyle
	}
	return idleStyle
}

type progressModel struct {
	title   string
	events  <-chan driver.Event
	spinner spinner.Model
	bar     progress.Model
	items   []unitRow
	byName  map[string]*unitRow
	phase   string
	width   int
	done    bool
}

type eventMsg driver.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that lists every unit with
// its current stage. The model quits when events is closed.
func NewProgressModel(title string, units []string, events <-chan driver.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = busyStyle

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 76

	m := &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		bar:     bar,
		items:   make([]unitRow, len(units)),
		byName:  make(map[string]*unitRow, len(units)),
		width:   80,
	}
	for i, u := range units {
		m.items[i] = unitRow{name: u, status: "queued", state: driver.StatusQueued}
		m.byName[u] = &m.items[i]
	}
	return m
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.next())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		return m, tea.Batch(m.record(driver.Event(msg)), m.next())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.bar.Width = msg.Width - 4
		}
	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd
	}
	return m, nil
}

// next waits for one event; a closed channel ends the program.
func (m *progressModel) next() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) record(ev driver.Event) tea.Cmd {
	label := describe(ev.Stage, ev.Status)
	if label == "" {
		return nil
	}
	if ev.Unit == "" {
		m.phase = label
		return nil
	}
	row, ok := m.byName[ev.Unit]
	if !ok {
		return nil
	}
	row.status = label
	row.stage = ev.Stage
	row.state = ev.Status
	row.err = ev.Err
	if row.finished() {
		row.elapsed = ev.Elapsed
	}
	return m.bar.SetPercent(m.percent())
}

func (m *progressModel) percent() float64 {
	if len(m.items) == 0 {
		return 0
	}
	var sum float64
	for i := range m.items {
		sum += m.items[i].share()
	}
	return sum / float64(len(m.items))
}

func (m *progressModel) View() string {
	if len(m.items) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render(m.header()))
	b.WriteString("\n\n")

	nameWidth := max(m.width-labelWidth-4, 20)
	finished, failed := 0, 0
	for i := range m.items {
		row := &m.items[i]
		line := truncate(row.name, nameWidth)
		if row.finished() {
			finished++
			if row.elapsed > 0 {
				line += " " + row.elapsed.Round(time.Millisecond).String()
			}
		}
		if row.err != nil {
			failed++
			line += ": " + row.err.Error()
		}
		fmt.Fprintf(&b, "  %s %s\n", row.style().Render(fmt.Sprintf("%*s", labelWidth, row.status)), line)
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.bar.ViewAs(1))
	} else {
		b.WriteString(m.bar.View())
	}
	fmt.Fprintf(&b, "\n%d/%d units", finished, len(m.items))
	if failed > 0 {
		b.WriteString(failStyle.Render(fmt.Sprintf(", %d failed", failed)))
	}
	b.WriteString("\n")
	return b.String()
}

func (m *progressModel) header() string {
	h := m.title
	if m.phase != "" {
		h += " (" + m.phase + ")"
	}
	if m.done {
		return "done: " + h
	}
	return m.spinner.View() + " " + h
}

// describe names the state a unit is in; an empty result means the event
// carries nothing to show.
func describe(stage driver.Stage, status driver.Status) string {
	if status == driver.StatusWorking {
		return workingLabel[stage]
	}
	switch status {
	case driver.StatusQueued, driver.StatusCached, driver.StatusDone, driver.StatusError:
		return string(status)
	}
	return ""
}

// truncate cuts value to at most width display cells, ending in "..." when
// there is room for it.
func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
