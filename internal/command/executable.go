package command

import (
	"os/exec"
)

// Executable runs an external program found on the search path.
type Executable struct {
	rt      *Runtime
	name    string
	path    string
	streams *Streams
}

func NewExecutable(rt *Runtime, name, path string, streams *Streams) *Executable {
	if streams == nil {
		streams = &Streams{}
	}
	streams.inherit(rt)

	return &Executable{
		rt:      rt,
		name:    name,
		path:    path,
		streams: streams,
	}
}

func (e *Executable) Name() string      { return e.name }
func (e *Executable) Kind() Kind        { return KindExecutable }
func (e *Executable) Streams() *Streams { return e.streams }
func (e *Executable) Teardown() error   { return e.streams.Close() }
func (e *Executable) command()          {}

// Execute runs the program and waits for it. A non-zero exit status is not
// an error of the shell and is only logged.
func (e *Executable) Execute(args []string) error {
	proc, err := e.Start(args)
	if err != nil {
		return err
	}

	if err := proc.Wait(); err != nil {
		e.rt.debugf("%s: %v", e.name, err)
	}
	return nil
}

// Start spawns the program with the shell's environment table as its
// environment.
func (e *Executable) Start(args []string) (Process, error) {
	cmd := &exec.Cmd{
		Path:   e.path,
		Args:   append([]string{e.name}, args...),
		Env:    e.rt.Vars.Environ(),
		Stdin:  e.streams.Stdin,
		Stdout: e.streams.Stdout,
		Stderr: e.streams.Stderr,
	}

	e.rt.debugf("exec %s %q", e.path, cmd.Args)

	if err := cmd.Start(); err != nil {
		return nil, newError(e.name, "%v", pathError(err))
	}
	return cmd, nil
}
