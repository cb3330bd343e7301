package command

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Stage is one command of a pipeline together with its arguments.
type Stage struct {
	Command Command
	Args    []string
}

// Pipeline runs its stages concurrently, the output of each stage feeding the
// input of the next one.
type Pipeline struct {
	rt      *Runtime
	stages  []Stage
	streams *Streams
}

func NewPipeline(rt *Runtime, stages []Stage) *Pipeline {
	streams := &Streams{}
	streams.inherit(rt)

	return &Pipeline{
		rt:      rt,
		stages:  stages,
		streams: streams,
	}
}

func (p *Pipeline) Kind() Kind        { return KindPipeline }
func (p *Pipeline) Streams() *Streams { return p.streams }
func (p *Pipeline) Stages() []Stage   { return p.stages }
func (p *Pipeline) command()          {}

func (p *Pipeline) Name() string {
	names := make([]string, 0, len(p.stages))
	for _, stage := range p.stages {
		names = append(names, stage.Command.Name())
	}
	return strings.Join(names, " | ")
}

// Execute connects stage i to stage i+1 with a pipe, starts every stage from
// left to right and waits for all of them in the same order. The pipe to the
// next stage replaces any output redirect a stage declared.
//
// Once stage i is started the parent closes its copies of both pipe ends the
// stage uses. A stray write end left open would keep the next reader from
// ever seeing end of input.
func (p *Pipeline) Execute(args []string) error {
	var (
		procs []Process
		prev  *os.File
	)

	abort := func(err error, files ...*os.File) error {
		closeFiles(append(files, prev)...)
		p.wait(procs)
		return err
	}

	for i, stage := range p.stages {
		var next, w *os.File
		if i < len(p.stages)-1 {
			var err error
			next, w, err = os.Pipe()
			if err != nil {
				return abort(fmt.Errorf("pipe: %w", err))
			}
		}

		streams := stage.Command.Streams()
		if prev != nil {
			streams.Stdin = prev
		}
		if w != nil {
			streams.Stdout = w
		}

		p.rt.debugf("pipeline: start stage %d %s %q", i, stage.Command.Name(), stage.Args)
		proc, err := stage.Command.Start(stage.Args)
		if err != nil {
			return abort(err, next, w)
		}
		procs = append(procs, proc)

		closeFiles(prev, w)
		prev = next
	}

	p.wait(procs)
	return nil
}

func (p *Pipeline) wait(procs []Process) {
	for i, proc := range procs {
		if err := proc.Wait(); err != nil {
			p.rt.debugf("pipeline: stage %d: %v", i, err)
		}
	}
}

func closeFiles(files ...*os.File) {
	for _, f := range files {
		if f != nil {
			f.Close()
		}
	}
}

// Start runs the whole pipeline on a goroutine.
func (p *Pipeline) Start(args []string) (Process, error) {
	return goUnit(func() error {
		return p.Execute(args)
	}), nil
}

// Teardown releases the streams of every stage.
func (p *Pipeline) Teardown() error {
	var errs []error
	for _, stage := range p.stages {
		if err := stage.Command.Teardown(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := p.streams.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
