package command

import (
	"errors"
	"fmt"
	"os"

	"github.com/pborman/getopt/v2"
	"golang.org/x/sys/unix"

	"pipesh/internal/builtin"
	"pipesh/internal/variables"
)

type builtinFunc func(rt *Runtime, s *Streams, args []string) error

var builtinFuncs = map[builtin.Variant]builtinFunc{
	builtin.Echo:    runEcho,
	builtin.Exit:    runExit,
	builtin.Type:    runType,
	builtin.Pwd:     runPwd,
	builtin.Cd:      runCd,
	builtin.History: runHistory,
}

// Builtin is a command implemented by the shell itself.
type Builtin struct {
	rt      *Runtime
	name    string
	variant builtin.Variant
	streams *Streams
}

func NewBuiltin(rt *Runtime, name string, variant builtin.Variant, streams *Streams) *Builtin {
	if streams == nil {
		streams = &Streams{}
	}
	streams.inherit(rt)

	return &Builtin{
		rt:      rt,
		name:    name,
		variant: variant,
		streams: streams,
	}
}

func (b *Builtin) Name() string      { return b.name }
func (b *Builtin) Kind() Kind        { return KindBuiltin }
func (b *Builtin) Streams() *Streams { return b.streams }
func (b *Builtin) Teardown() error   { return b.streams.Close() }
func (b *Builtin) command()          {}

func (b *Builtin) Execute(args []string) error {
	fn, ok := builtinFuncs[b.variant]
	if !ok {
		return newError(b.name, "unknown builtin %s", b.variant)
	}
	return fn(b.rt, b.streams, args)
}

// Start runs the builtin on its own goroutine. Files among its input and
// output are duplicated first so the caller may close its copies right away;
// the duplicates are closed when the builtin returns. Failures are reported on
// the builtin's error stream and an exit request only ends this builtin.
func (b *Builtin) Start(args []string) (Process, error) {
	var dups []*os.File
	closeDups := func() {
		for _, f := range dups {
			f.Close()
		}
	}

	streams := &Streams{
		Stdin:  b.streams.Stdin,
		Stdout: b.streams.Stdout,
		Stderr: b.streams.Stderr,
	}

	if f, ok := streams.Stdin.(*os.File); ok {
		dup, err := dupFile(f)
		if err != nil {
			return nil, err
		}
		dups = append(dups, dup)
		streams.Stdin = dup
	}

	if f, ok := streams.Stdout.(*os.File); ok {
		dup, err := dupFile(f)
		if err != nil {
			closeDups()
			return nil, err
		}
		dups = append(dups, dup)
		streams.Stdout = dup
	}

	run := &Builtin{rt: b.rt, name: b.name, variant: b.variant, streams: streams}

	return goUnit(func() error {
		defer closeDups()

		err := run.Execute(args)

		var exit *ExitRequest
		switch {
		case err == nil:
			return nil
		case errors.As(err, &exit):
			b.rt.debugf("%s: exit %d ignored inside a pipeline", b.name, exit.Code)
			return nil
		default:
			Report(streams.Stderr, b.name, err)
			return nil
		}
	}), nil
}

// dupFile duplicates f with close-on-exec set, so programs spawned while the
// builtin runs never inherit the copy.
func dupFile(f *os.File) (*os.File, error) {
	fd, err := unix.FcntlInt(f.Fd(), unix.F_DUPFD_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("dup %s: %w", f.Name(), err)
	}
	return os.NewFile(uintptr(fd), f.Name()), nil
}

func runEcho(rt *Runtime, s *Streams, args []string) error {
	_, err := fmt.Fprintln(s.Stdout, builtin.JoinArgs(args))
	return err
}

func runExit(rt *Runtime, s *Streams, args []string) error {
	switch len(args) {
	case 0:
		return &ExitRequest{Code: 0}
	case 1:
		code, err := builtin.ParseIntArg(args[0])
		if err != nil {
			return newError("exit", "%s: numeric argument required", args[0])
		}
		return &ExitRequest{Code: code}
	default:
		return newError("exit", "too many arguments")
	}
}

func runType(rt *Runtime, s *Streams, args []string) error {
	for _, name := range args {
		switch kind, path := rt.classify(name); kind {
		case KindBuiltin:
			fmt.Fprintf(s.Stdout, "%s is a shell builtin\n", name)
		case KindExecutable:
			fmt.Fprintf(s.Stdout, "%s is %s\n", name, path)
		default:
			fmt.Fprintf(s.Stderr, "%s: not found\n", name)
		}
	}
	return nil
}

func runPwd(rt *Runtime, s *Streams, args []string) error {
	if len(args) > 0 {
		return newError("pwd", "too many arguments")
	}

	wd, err := os.Getwd()
	if err != nil {
		return newError("pwd", "%v", err)
	}

	_, err = fmt.Fprintln(s.Stdout, wd)
	return err
}

func runCd(rt *Runtime, s *Streams, args []string) error {
	var (
		target string
		show   bool
	)

	switch {
	case len(args) > 1:
		return newError("cd", "too many arguments")
	case len(args) == 0:
		home, err := rt.Vars.UserHomeDir()
		if err != nil || home == "" {
			return newError("cd", "HOME not set")
		}
		target = home
	case args[0] == "-":
		prev := rt.Vars.Get(variables.OldPwd)
		if prev == "" {
			return newError("cd", "OLDPWD not set")
		}
		target, show = prev, true
	default:
		target = args[0]
	}

	info, err := rt.Fs.Stat(target)
	switch {
	case os.IsNotExist(err):
		return newError("cd", "%s: No such file or directory", target)
	case err != nil:
		return newError("cd", "%s: %v", target, pathError(err))
	case !info.IsDir():
		return newError("cd", "%s: Not a directory", target)
	}

	prev, err := os.Getwd()
	if err != nil {
		prev = rt.Vars.Get(variables.Pwd)
	}

	if err := os.Chdir(target); err != nil {
		return newError("cd", "%s: %v", target, pathError(err))
	}

	wd, err := os.Getwd()
	if err != nil {
		wd = target
	}

	if err := rt.Vars.Set(variables.OldPwd, prev); err != nil {
		return newError("cd", "%v", err)
	}
	if err := rt.Vars.Set(variables.Pwd, wd); err != nil {
		return newError("cd", "%v", err)
	}
	rt.debugf("cd: %s -> %s", prev, wd)

	if show {
		fmt.Fprintln(s.Stdout, wd)
	}
	return nil
}

func pathError(err error) error {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Err
	}
	return err
}

func runHistory(rt *Runtime, s *Streams, args []string) error {
	opts := getopt.New()
	opts.SetProgram("history")
	opts.SetParameters("[N] | -r FILE | -w FILE | -a FILE")
	read := opts.Bool('r', "append the lines of FILE to the history list")
	write := opts.Bool('w', "write the history list to FILE")
	appendNew := opts.Bool('a', "append the lines added since the last write to FILE")

	if err := opts.Getopt(append([]string{"history"}, args...), nil); err != nil {
		return newError("history", "%v", err)
	}
	rest := opts.Args()

	if rt.History == nil {
		return newError("history", "history is not available")
	}

	var (
		flag    string
		persist func(string) error
		chosen  int
	)
	if *read {
		flag, persist = "-r", rt.History.ReadFile
		chosen++
	}
	if *write {
		flag, persist = "-w", rt.History.WriteFile
		chosen++
	}
	if *appendNew {
		flag, persist = "-a", rt.History.AppendFile
		chosen++
	}

	switch {
	case chosen > 1:
		return newError("history", "only one of -r, -w and -a may be given")
	case chosen == 1:
		if len(rest) == 0 {
			return newError("history", "%s: filename argument required", flag)
		}
		if len(rest) > 1 {
			return newError("history", "too many arguments")
		}
		if err := persist(rest[0]); err != nil {
			return newError("history", "%s: %v", rest[0], pathError(err))
		}
		return nil
	}

	count := -1
	switch len(rest) {
	case 0:
	case 1:
		n, err := builtin.ParseIntArg(rest[0])
		if err != nil || n < 0 {
			return newError("history", "%s: numeric argument required", rest[0])
		}
		count = n
	default:
		return newError("history", "too many arguments")
	}

	start, entries := rt.History.Tail(count)
	for i, entry := range entries {
		fmt.Fprintf(s.Stdout, "%4d  %s\n", start+i+1, entry)
	}
	return nil
}
