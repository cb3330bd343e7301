package readline

import (
	"errors"
	"io"
	"os"

	"github.com/abiosoft/readline"
	"golang.org/x/term"

	"pipesh/internal/history"
)

// ErrInterrupt is returned by ReadLine when the user pressed Ctrl-C.
var ErrInterrupt = readline.ErrInterrupt

// Manager reads interactive input lines with editing and in-session history
// recall.
type Manager struct {
	instance *readline.Instance
	history  *history.Manager
}

func New(hist *history.Manager, stdin io.Reader, stdout, stderr io.Writer) (*Manager, error) {
	cfg := &readline.Config{
		Stdin:  readline.NewCancelableStdin(stdin),
		Stdout: stdout,
		Stderr: stderr,

		DisableAutoSaveHistory: true,

		FuncIsTerminal: func() bool {
			return IsTerminal(stdin)
		},
	}

	if err := cfg.Init(); err != nil {
		return nil, err
	}

	instance, err := readline.NewEx(cfg)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		instance: instance,
		history:  hist,
	}

	if hist != nil {
		for _, line := range hist.All() {
			instance.SaveHistory(line)
		}
	}

	return m, nil
}

// ReadLine shows prompt and returns the next line without its newline.
// io.EOF means the input was closed.
func (m *Manager) ReadLine(prompt string) (string, error) {
	m.instance.SetPrompt(prompt)

	line, err := m.instance.Readline()
	if errors.Is(err, readline.ErrInterrupt) {
		return line, ErrInterrupt
	}
	return line, err
}

// AddHistory records line in the shell history and in the editor's recall
// list.
func (m *Manager) AddHistory(line string) {
	if m.history != nil {
		m.history.Add(line)
	}
	m.instance.SaveHistory(line)
}

func (m *Manager) Close() error {
	return m.instance.Close()
}

// IsTerminal reports whether r is a file attached to a terminal.
func IsTerminal(r interface{}) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
