package command

import (
	"fmt"
)

// NotFound stands in for a name that is neither a builtin nor on the search
// path. Running it only prints a diagnostic.
type NotFound struct {
	rt      *Runtime
	name    string
	streams *Streams
}

func NewNotFound(rt *Runtime, name string, streams *Streams) *NotFound {
	if streams == nil {
		streams = &Streams{}
	}
	streams.inherit(rt)

	return &NotFound{
		rt:      rt,
		name:    name,
		streams: streams,
	}
}

func (n *NotFound) Name() string      { return n.name }
func (n *NotFound) Kind() Kind        { return KindNotFound }
func (n *NotFound) Streams() *Streams { return n.streams }
func (n *NotFound) Teardown() error   { return n.streams.Close() }
func (n *NotFound) command()          {}

func (n *NotFound) Execute(args []string) error {
	fmt.Fprintf(n.streams.Stderr, "%s: Command not found\n", n.name)
	return nil
}

func (n *NotFound) Start(args []string) (Process, error) {
	return done{err: n.Execute(args)}, nil
}

// Assignment sets one entry of the environment table.
type Assignment struct {
	rt      *Runtime
	key     string
	value   string
	streams *Streams
}

func NewAssignment(rt *Runtime, key, value string) *Assignment {
	streams := &Streams{}
	streams.inherit(rt)

	return &Assignment{
		rt:      rt,
		key:     key,
		value:   value,
		streams: streams,
	}
}

func (a *Assignment) Name() string      { return a.key }
func (a *Assignment) Kind() Kind        { return KindAssignment }
func (a *Assignment) Streams() *Streams { return a.streams }
func (a *Assignment) Teardown() error   { return a.streams.Close() }
func (a *Assignment) command()          {}

func (a *Assignment) Execute(args []string) error {
	if err := a.rt.Vars.Set(a.key, a.value); err != nil {
		return newError(a.key, "%v", err)
	}
	a.rt.debugf("set %s=%q", a.key, a.value)
	return nil
}

func (a *Assignment) Start(args []string) (Process, error) {
	return done{err: a.Execute(args)}, nil
}
