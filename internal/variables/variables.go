package variables

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

const (
	Home   = "HOME"
	Path   = "PATH"
	Pwd    = "PWD"
	OldPwd = "OLDPWD"
	PS1    = "PS1"
)

// Manager is the shell's environment table. Every entry is passed to spawned
// processes as their environment.
type Manager struct {
	vars map[string]string
	mu   sync.RWMutex
}

// New creates a table seeded from the process environment.
func New() *Manager {
	return NewFromEnviron(os.Environ())
}

// NewFromEnviron creates a table from a list of "key=value" strings. Entries
// without '=' are stored with an empty value.
func NewFromEnviron(environ []string) *Manager {
	m := &Manager{
		vars: make(map[string]string),
	}

	for _, env := range environ {
		parts := strings.SplitN(env, "=", 2)
		key, value := parts[0], ""
		if len(parts) == 2 {
			value = parts[1]
		}
		if key == "" {
			continue
		}
		m.vars[key] = value
	}

	return m
}

func (m *Manager) Set(name, value string) error {
	if name == "" {
		return fmt.Errorf("empty variable name")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.vars[name] = value
	return nil
}

// Get returns the value of name, or "" when it is not set.
func (m *Manager) Get(name string) string {
	value, _ := m.Lookup(name)
	return value
}

func (m *Manager) Lookup(name string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.vars[name]
	return value, ok
}

// UserHomeDir resolves the home directory from $HOME, falling back to the
// operating system's notion of it.
func (m *Manager) UserHomeDir() (string, error) {
	if home := m.Get(Home); home != "" {
		return home, nil
	}
	return os.UserHomeDir()
}

// Environ returns the table as sorted "key=value" strings, ready to be used
// as a child process environment.
func (m *Manager) Environ() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	environ := make([]string, 0, len(m.vars))
	for k, v := range m.vars {
		environ = append(environ, k+"="+v)
	}

	sort.Strings(environ)
	return environ
}
