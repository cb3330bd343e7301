package builtin

import (
	"fmt"
	"strconv"
	"strings"
)

// Variant identifies one of the commands implemented by the shell itself.
type Variant int

const (
	Echo Variant = iota + 1
	Exit
	Type
	Pwd
	Cd
	History
)

func (v Variant) String() string {
	switch v {
	case Echo:
		return "echo"
	case Exit:
		return "exit"
	case Type:
		return "type"
	case Pwd:
		return "pwd"
	case Cd:
		return "cd"
	case History:
		return "history"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// Manager is the builtin name table consulted before the search path.
type Manager struct {
	builtins map[string]Variant
}

// New returns a table holding every builtin variant under its own name.
func New() *Manager {
	m := &Manager{
		builtins: make(map[string]Variant),
	}

	for _, v := range []Variant{Echo, Exit, Type, Pwd, Cd, History} {
		m.Register(v.String(), v)
	}

	return m
}

func (m *Manager) Register(name string, v Variant) {
	m.builtins[name] = v
}

func (m *Manager) Lookup(name string) (Variant, bool) {
	v, ok := m.builtins[name]
	return v, ok
}

func ParseIntArg(arg string) (int, error) {
	return strconv.Atoi(arg)
}

func JoinArgs(args []string) string {
	return strings.Join(args, " ")
}
