package prompt

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"pipesh/internal/variables"
)

const DefaultPS1 = "\\u@\\h:\\w\\$ "

var (
	colorUser = color.New(color.FgGreen, color.Bold)
	colorDir  = color.New(color.FgBlue, color.Bold)
)

func init() {
	colorUser.EnableColor()
	colorDir.EnableColor()
}

// Manager renders the PS1 prompt.
type Manager struct {
	variables *variables.Manager
	colors    bool

	currentUser func() (*user.User, error)
	hostname    func() (string, error)
	getwd       func() (string, error)
}

func New(vars *variables.Manager, colors bool) *Manager {
	return &Manager{
		variables:   vars,
		colors:      colors,
		currentUser: user.Current,
		hostname:    os.Hostname,
		getwd:       os.Getwd,
	}
}

// Generate expands $PS1, falling back to DefaultPS1 when it is unset.
func (m *Manager) Generate() string {
	ps1 := m.variables.Get(variables.PS1)
	if ps1 == "" {
		ps1 = DefaultPS1
	}

	return m.expandPrompt(ps1)
}

// expandPrompt replaces the escapes \u \h \H \w \W \$ \n \s and \\. Unknown
// escapes are kept as written.
func (m *Manager) expandPrompt(prompt string) string {
	var (
		sb      strings.Builder
		escaped bool
	)

	for _, ch := range prompt {
		if !escaped {
			if ch == '\\' {
				escaped = true
			} else {
				sb.WriteRune(ch)
			}
			continue
		}
		escaped = false

		switch ch {
		case 'u':
			sb.WriteString(m.paint(colorUser, m.username()))
		case 'h':
			host := m.host()
			if i := strings.IndexByte(host, '.'); i >= 0 {
				host = host[:i]
			}
			sb.WriteString(m.paint(colorUser, host))
		case 'H':
			sb.WriteString(m.paint(colorUser, m.host()))
		case 'w':
			sb.WriteString(m.paint(colorDir, m.workdir()))
		case 'W':
			sb.WriteString(m.paint(colorDir, filepath.Base(m.workdir())))
		case '$':
			if m.uid() == "0" {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('$')
			}
		case 'n':
			sb.WriteByte('\n')
		case 's':
			sb.WriteString("pipesh")
		case '\\':
			sb.WriteByte('\\')
		default:
			sb.WriteByte('\\')
			sb.WriteRune(ch)
		}
	}

	if escaped {
		sb.WriteByte('\\')
	}

	return sb.String()
}

func (m *Manager) paint(c *color.Color, s string) string {
	if !m.colors {
		return s
	}
	return c.Sprint(s)
}

func (m *Manager) username() string {
	if u, err := m.currentUser(); err == nil {
		return u.Username
	}
	return m.variables.Get("USER")
}

func (m *Manager) uid() string {
	if u, err := m.currentUser(); err == nil {
		return u.Uid
	}
	return ""
}

func (m *Manager) host() string {
	host, _ := m.hostname()
	return host
}

// workdir abbreviates the home directory to ~.
func (m *Manager) workdir() string {
	pwd, err := m.getwd()
	if err != nil {
		pwd = m.variables.Get(variables.Pwd)
	}

	home := m.variables.Get(variables.Home)
	switch {
	case home == "" || home == "/":
		return pwd
	case pwd == home:
		return "~"
	case strings.HasPrefix(pwd, home+"/"):
		return "~" + pwd[len(home):]
	default:
		return pwd
	}
}

func (m *Manager) SetPS1(ps1 string) {
	m.variables.Set(variables.PS1, ps1)
}

func (m *Manager) GetPS1() string {
	return m.variables.Get(variables.PS1)
}
