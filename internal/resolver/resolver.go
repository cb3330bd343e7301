package resolver

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"pipesh/internal/builtin"
	"pipesh/internal/command"
	"pipesh/internal/variables"
)

var errNotExecutable = errors.New("not executable")

// Descriptor says how a command name resolves, without building anything
// that holds process resources.
type Descriptor struct {
	Kind command.Kind
	Name string

	// Path is set for executables.
	Path string

	// Variant is set for builtins.
	Variant builtin.Variant

	// Key and Value are set for assignments.
	Key   string
	Value string
}

// Assign describes setting key to value in the environment table.
func Assign(key, value string) Descriptor {
	return Descriptor{Kind: command.KindAssignment, Name: key, Key: key, Value: value}
}

// Build creates the command. A nil streams gets the shell's standard streams.
func (d Descriptor) Build(rt *command.Runtime, streams *command.Streams) command.Command {
	switch d.Kind {
	case command.KindBuiltin:
		return command.NewBuiltin(rt, d.Name, d.Variant, streams)
	case command.KindExecutable:
		return command.NewExecutable(rt, d.Name, d.Path, streams)
	case command.KindAssignment:
		return command.NewAssignment(rt, d.Key, d.Value)
	default:
		return command.NewNotFound(rt, d.Name, streams)
	}
}

// Resolver maps command names to descriptors: builtins first, then the
// entries of $PATH from left to right.
type Resolver struct {
	fs       afero.Fs
	builtins *builtin.Manager
	vars     *variables.Manager
}

func New(fs afero.Fs, builtins *builtin.Manager, vars *variables.Manager) *Resolver {
	return &Resolver{
		fs:       fs,
		builtins: builtins,
		vars:     vars,
	}
}

func (r *Resolver) Resolve(name string) Descriptor {
	if v, ok := r.builtins.Lookup(name); ok {
		return Descriptor{Kind: command.KindBuiltin, Name: name, Variant: v}
	}

	if path, ok := r.lookPath(name); ok {
		return Descriptor{Kind: command.KindExecutable, Name: name, Path: path}
	}

	return Descriptor{Kind: command.KindNotFound, Name: name}
}

// Classify reports the kind a name resolves to and, for executables, the
// matching path.
func (r *Resolver) Classify(name string) (command.Kind, string) {
	d := r.Resolve(name)
	return d.Kind, d.Path
}

// lookPath searches $PATH for name. An entry naming a directory matches an
// executable file called name inside it; an entry naming a file matches when
// its base name is name. A name containing a slash is checked directly.
func (r *Resolver) lookPath(name string) (string, bool) {
	if name == "" {
		return "", false
	}

	if strings.Contains(name, "/") {
		return name, r.findExecutable(name) == nil
	}

	for _, entry := range filepath.SplitList(r.vars.Get(variables.Path)) {
		if entry == "" {
			entry = "."
		}

		info, err := r.fs.Stat(entry)
		if err != nil {
			continue
		}

		if !info.IsDir() {
			if filepath.Base(entry) == name && isExecutable(info) {
				return entry, true
			}
			continue
		}

		path := filepath.Join(entry, name)
		if !strings.Contains(path, "/") {
			path = "./" + path
		}
		if r.findExecutable(path) == nil {
			return path, true
		}
	}

	return "", false
}

func (r *Resolver) findExecutable(file string) error {
	info, err := r.fs.Stat(file)
	if err != nil {
		return err
	}
	if !isExecutable(info) {
		return errNotExecutable
	}
	return nil
}

func isExecutable(info fs.FileInfo) bool {
	m := info.Mode()
	return m.IsRegular() && m&0111 != 0
}
