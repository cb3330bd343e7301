package command

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/afero"

	"pipesh/internal/history"
	"pipesh/internal/variables"
)

// Kind discriminates the closed set of command variants.
type Kind int

const (
	KindBuiltin Kind = iota + 1
	KindExecutable
	KindNotFound
	KindAssignment
	KindPipeline
)

func (k Kind) String() string {
	switch k {
	case KindBuiltin:
		return "builtin"
	case KindExecutable:
		return "executable"
	case KindNotFound:
		return "not found"
	case KindAssignment:
		return "assignment"
	case KindPipeline:
		return "pipeline"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Process is a started command that can be waited for. *exec.Cmd satisfies
// it.
type Process interface {
	Wait() error
}

// Command is something the shell can run: a builtin, an external executable,
// a missing command, a variable assignment or a pipeline of those. The set is
// closed; use Kind to tell the variants apart.
type Command interface {
	Name() string
	Kind() Kind

	// Streams returns the command's standard streams. They may be replaced
	// until the command is executed or started.
	Streams() *Streams

	// Execute runs the command to completion.
	Execute(args []string) error

	// Start runs the command without waiting for it. Whatever Start does not
	// hand over to the returned Process (pipe ends in particular) may be
	// closed by the caller as soon as Start returns.
	Start(args []string) (Process, error)

	// Teardown releases the streams owned by the command. It is safe to
	// call more than once.
	Teardown() error

	command()
}

// Runtime is the shell state shared by every command of a session.
type Runtime struct {
	Vars    *variables.Manager
	History *history.Manager
	Fs      afero.Fs

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Classify reports how a name would be resolved and, for external
	// executables, the matching path.
	Classify func(name string) (Kind, string)

	Log *log.Logger
}

func (rt *Runtime) debugf(format string, args ...interface{}) {
	if rt.Log != nil {
		rt.Log.Printf(format, args...)
	}
}

func (rt *Runtime) classify(name string) (Kind, string) {
	if rt.Classify == nil {
		return KindNotFound, ""
	}
	return rt.Classify(name)
}

// Streams holds a command's standard streams. Any of them may be a resource
// owned by the command, such as an opened redirect target; owned resources
// are released by Close.
type Streams struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	owned  []io.Closer
	closed bool
}

// Own registers c to be closed together with the streams.
func (s *Streams) Own(c io.Closer) {
	s.owned = append(s.owned, c)
}

// Close releases the owned resources. Only the first call has an effect.
func (s *Streams) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	for _, c := range s.owned {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.owned = nil

	return errors.Join(errs...)
}

// inherit fills the unset streams with the shell's own.
func (s *Streams) inherit(rt *Runtime) {
	if s.Stdin == nil {
		s.Stdin = rt.Stdin
	}
	if s.Stdin == nil {
		s.Stdin = os.Stdin
	}

	if s.Stdout == nil {
		s.Stdout = rt.Stdout
	}
	if s.Stdout == nil {
		s.Stdout = os.Stdout
	}

	if s.Stderr == nil {
		s.Stderr = rt.Stderr
	}
	if s.Stderr == nil {
		s.Stderr = os.Stderr
	}
}

// Error is a recoverable failure of a command, reported to the user as
// "name: message".
type Error struct {
	Name    string
	Message string
}

func (e *Error) Error() string {
	return e.Name + ": " + e.Message
}

func newError(name, format string, args ...interface{}) *Error {
	return &Error{Name: name, Message: fmt.Sprintf(format, args...)}
}

// ExitRequest asks the shell to terminate with Code.
type ExitRequest struct {
	Code int
}

func (e *ExitRequest) Error() string {
	return fmt.Sprintf("exit %d", e.Code)
}

// Report writes err to w the way the shell shows command failures. Errors
// other than *Error are prefixed with name.
func Report(w io.Writer, name string, err error) {
	var cmdErr *Error
	if errors.As(err, &cmdErr) {
		fmt.Fprintln(w, cmdErr.Error())
		return
	}
	fmt.Fprintf(w, "%s: %v\n", name, err)
}

// done is a Process that has already finished.
type done struct {
	err error
}

func (d done) Wait() error {
	return d.err
}

// unit is a Process backed by a goroutine.
type unit struct {
	finished chan struct{}
	err      error
}

func goUnit(fn func() error) *unit {
	u := &unit{finished: make(chan struct{})}
	go func() {
		defer close(u.finished)
		u.err = fn()
	}()
	return u
}

func (u *unit) Wait() error {
	<-u.finished
	return u.err
}
