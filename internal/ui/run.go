package ui

import (
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"ember/internal/driver"
)

// Run shows progress for work until it returns. work receives the sink it
// must report through; the event channel is closed once work is done.
func Run[T any](out io.Writer, title string, units []string, work func(driver.ProgressSink) (T, error)) (T, error) {
	type outcome struct {
		val T
		err error
	}
	events := make(chan driver.Event, 256)
	done := make(chan outcome, 1)
	go func() {
		v, err := work(driver.ChannelSink{Ch: events})
		done <- outcome{v, err}
		close(events)
	}()

	program := tea.NewProgram(NewProgressModel(title, units, events), tea.WithOutput(out), tea.WithInput(nil))
	_, uiErr := program.Run()
	if uiErr != nil {
		// drain so the producer never blocks on a dead UI
		go func() {
			for range events {
			}
		}()
	}
	res := <-done
	if uiErr != nil {
		return res.val, uiErr
	}
	return res.val, res.err
}
