package history

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

const DefaultMaxSize = 1000

type Manager struct {
	fs      afero.Fs
	entries []string
	file    string
	maxSize int

	// appended is the number of leading entries already written to a file
	// by WriteFile or AppendFile.
	appended int

	mu sync.Mutex
}

// New creates an empty history backed by fs. The file is only used by Load
// and Save; an empty name disables them.
func New(fs afero.Fs, file string, maxSize int) *Manager {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	return &Manager{
		fs:      fs,
		file:    file,
		maxSize: maxSize,
	}
}

// Add records one input line. Blank lines and immediate repeats are dropped.
func (m *Manager) Add(command string) {
	command = strings.TrimSpace(command)
	if command == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.entries) > 0 && m.entries[len(m.entries)-1] == command {
		return
	}

	m.entries = append(m.entries, command)
	m.trim()
}

func (m *Manager) trim() {
	if extra := len(m.entries) - m.maxSize; extra > 0 {
		m.entries = m.entries[extra:]
		m.appended -= extra
		if m.appended < 0 {
			m.appended = 0
		}
	}
}

func (m *Manager) All() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string{}, m.entries...)
}

// Tail returns at most n of the newest entries together with the zero-based
// index of the first one. A negative n returns everything.
func (m *Manager) Tail(n int) (int, []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := 0
	if n >= 0 && n < len(m.entries) {
		start = len(m.entries) - n
	}
	return start, append([]string{}, m.entries[start:]...)
}

func (m *Manager) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.entries)
}

// Load reads the configured history file. A missing file is not an error.
func (m *Manager) Load() error {
	if m.file == "" {
		return nil
	}

	err := m.ReadFile(m.file)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.appended = len(m.entries)
	m.mu.Unlock()
	return nil
}

// Save overwrites the configured history file with the whole list.
func (m *Manager) Save() error {
	if m.file == "" {
		return nil
	}
	return m.WriteFile(m.file)
}

// ReadFile appends every non-blank line of path to the list.
func (m *Manager) ReadFile(path string) error {
	file, err := m.fs.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	m.mu.Lock()
	defer m.mu.Unlock()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			m.entries = append(m.entries, line)
		}
	}
	m.trim()

	return scanner.Err()
}

// WriteFile replaces the content of path with the whole list.
func (m *Manager) WriteFile(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.write(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, m.entries); err != nil {
		return err
	}
	m.appended = len(m.entries)
	return nil
}

// AppendFile appends to path the entries recorded since the last WriteFile
// or AppendFile.
func (m *Manager) AppendFile(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.write(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, m.entries[m.appended:]); err != nil {
		return err
	}
	m.appended = len(m.entries)
	return nil
}

func (m *Manager) write(path string, flag int, entries []string) error {
	file, err := m.fs.OpenFile(path, flag, 0600)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(file)
	for _, entry := range entries {
		if _, err := fmt.Fprintln(w, entry); err != nil {
			file.Close()
			return err
		}
	}

	if err := w.Flush(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// File returns the history file used by Load and Save.
func (m *Manager) File() string {
	return m.file
}
