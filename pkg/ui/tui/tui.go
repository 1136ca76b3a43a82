// Package tui renders a full-screen dashboard for a batch run. The TUI
// implements batch.Reporter; progress reaches the UI as messages.
package tui

import (
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"photofetch/pkg/batch"
	errs "photofetch/pkg/errors"
)

// TUI represents the terminal user interface
type TUI struct {
	program *tea.Program
	model   *Model
}

// NewTUI creates a dashboard. onStop is called when the user presses q.
// Without options the program runs in the alternate screen.
func NewTUI(onStop func(), opts ...tea.ProgramOption) *TUI {
	model := NewModel(onStop)
	if len(opts) == 0 {
		opts = []tea.ProgramOption{tea.WithAltScreen()}
	}

	return &TUI{
		program: tea.NewProgram(&model, opts...),
		model:   &model,
	}
}

// Start runs the TUI until the run finishes or the user leaves
func (t *TUI) Start() error {
	_, err := t.program.Run()
	return err
}

// Stop stops the TUI
func (t *TUI) Stop() {
	t.program.Quit()
}

// Send sends a message to the TUI. It blocks until the program is running
// and returns immediately once it has exited.
func (t *TUI) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

// LogWriter returns a writer whose lines appear in the log panel
func (t *TUI) LogWriter() io.Writer {
	return t.model.sink
}

func (t *TUI) Started(total, startIndex int) {
	t.Send(StartedMsg{Total: total, StartIndex: startIndex})
}

func (t *TUI) Skipped(index, total int) {
	t.Send(SkippedMsg{Index: index})
}

func (t *TUI) Downloaded(index, total int, fileName string) {
	t.Send(DownloadedMsg{Index: index, FileName: fileName})
}

func (t *TUI) Failed(index, total int, photoURL string, err error) {
	t.Send(FailedMsg{Index: index, PhotoURL: photoURL, Reason: errs.Reason(err)})
}

func (t *TUI) Finished(summary batch.Summary) {
	t.Send(FinishedMsg{Summary: summary})
}

var _ batch.Reporter = (*TUI)(nil)
