package executor

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"pipesh/internal/ast"
	"pipesh/internal/command"
	"pipesh/internal/parser"
	"pipesh/internal/resolver"
)

// assignmentPattern matches NAME=VALUE words that set a variable.
var assignmentPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*=[^=]*$`)

// Executor turns input lines into commands and runs them.
type Executor struct {
	rt       *command.Runtime
	parser   *parser.Parser
	resolver *resolver.Resolver
}

func New(rt *command.Runtime, p *parser.Parser, r *resolver.Resolver) *Executor {
	return &Executor{
		rt:       rt,
		parser:   p,
		resolver: r,
	}
}

// Evaluate parses line and builds the command that runs it along with the
// command's arguments. A blank line yields a nil command.
//
// When the first word of the line is an assignment the whole line evaluates
// to that assignment and any other stage is ignored.
func (e *Executor) Evaluate(line string) (command.Command, []string, error) {
	pipeline := e.parser.Parse(line)
	first := pipeline.Stages[0]

	if name := first.Name(); assignmentPattern.MatchString(name) {
		key, value, _ := strings.Cut(name, "=")
		return resolver.Assign(key, value).Build(e.rt, nil), nil, nil
	}

	if pipeline.Len() == 1 && first.Empty() {
		return nil, nil, nil
	}

	for _, stage := range pipeline.Stages {
		if stage.Empty() {
			return nil, nil, &command.Error{Name: "pipesh", Message: "syntax error near unexpected token '|'"}
		}
	}

	var stages []command.Stage
	for _, stage := range pipeline.Stages {
		streams, err := e.openRedirects(stage)
		if err != nil {
			for _, built := range stages {
				built.Command.Teardown()
			}
			return nil, nil, err
		}

		cmd := e.resolver.Resolve(stage.Name()).Build(e.rt, streams)
		e.debugf("evaluate: %s resolved as %s", cmd.Name(), cmd.Kind())

		stages = append(stages, command.Stage{Command: cmd, Args: stage.Args[1:]})
	}

	if len(stages) == 1 {
		return stages[0].Command, stages[0].Args, nil
	}
	return command.NewPipeline(e.rt, stages), []string{}, nil
}

// openRedirects opens the stage's redirect targets. The opened files are
// owned by the returned streams.
func (e *Executor) openRedirects(stage *ast.Stage) (*command.Streams, error) {
	streams := &command.Streams{}

	if stage.Stdout != nil {
		file, err := e.open(stage.Stdout)
		if err != nil {
			return nil, err
		}
		streams.Own(file)
		streams.Stdout = file
	}

	if stage.Stderr != nil {
		file, err := e.open(stage.Stderr)
		if err != nil {
			streams.Close()
			return nil, err
		}
		streams.Own(file)
		streams.Stderr = file
	}

	return streams, nil
}

func (e *Executor) open(redirect *ast.Redirect) (io.WriteCloser, error) {
	flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if redirect.Mode == ast.RedirectAppend {
		flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}

	file, err := e.rt.Fs.OpenFile(redirect.Path, flag, 0644)
	if err != nil {
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			err = pathErr.Err
		}
		return nil, &command.Error{Name: "pipesh", Message: fmt.Sprintf("%s: %v", redirect.Path, err)}
	}

	e.debugf("redirect: opened %s (%s)", redirect.Path, redirect.Mode)
	return file, nil
}

// Run evaluates and executes one line. Command failures are reported on the
// failing command's error stream; only a request to exit the shell is
// returned.
func (e *Executor) Run(line string) error {
	cmd, args, err := e.Evaluate(line)
	if err != nil {
		command.Report(e.stderr(), "pipesh", err)
		return nil
	}
	if cmd == nil {
		return nil
	}

	defer func() {
		if err := cmd.Teardown(); err != nil {
			e.debugf("teardown %s: %v", cmd.Name(), err)
		}
	}()

	err = cmd.Execute(args)

	var exit *command.ExitRequest
	switch {
	case err == nil:
		return nil
	case errors.As(err, &exit):
		return exit
	default:
		command.Report(cmd.Streams().Stderr, cmd.Name(), err)
		return nil
	}
}

func (e *Executor) stderr() io.Writer {
	if e.rt.Stderr != nil {
		return e.rt.Stderr
	}
	return os.Stderr
}

func (e *Executor) debugf(format string, args ...interface{}) {
	if e.rt.Log != nil {
		e.rt.Log.Printf(format, args...)
	}
}
