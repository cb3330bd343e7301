package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"pipesh/internal/builtin"
	"pipesh/internal/command"
	"pipesh/internal/config"
	"pipesh/internal/executor"
	"pipesh/internal/history"
	"pipesh/internal/parser"
	"pipesh/internal/prompt"
	"pipesh/internal/readline"
	"pipesh/internal/resolver"
	"pipesh/internal/variables"
)

const Version = "0.3.0"

type Shell struct {
	config    *config.Config
	variables *variables.Manager
	executor  *executor.Executor
	parser    *parser.Parser
	resolver  *resolver.Resolver
	history   *history.Manager
	prompt    *prompt.Manager
	builtins  *builtin.Manager

	fs     afero.Fs
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	log     *log.Logger
	session string

	interactive bool
	exitCode    int
	running     bool

	sigChan chan os.Signal
}

type Option func(*Shell)

// WithStreams replaces the process's standard streams.
func WithStreams(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(s *Shell) {
		s.stdin, s.stdout, s.stderr = stdin, stdout, stderr
	}
}

// WithFs sets the filesystem used for redirects, globbing, history files and
// the search path.
func WithFs(fs afero.Fs) Option {
	return func(s *Shell) {
		s.fs = fs
	}
}

// WithEnviron seeds the environment table instead of the process
// environment.
func WithEnviron(environ []string) Option {
	return func(s *Shell) {
		s.variables = variables.NewFromEnviron(environ)
	}
}

func New(cfg *config.Config, opts ...Option) *Shell {
	s := &Shell{
		config:   cfg,
		builtins: builtin.New(),
		fs:       afero.NewOsFs(),
		stdin:    os.Stdin,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		session:  uuid.New().String(),
		running:  true,
		sigChan:  make(chan os.Signal, 1),
	}

	for _, opt := range opts {
		opt(s)
	}
	if s.variables == nil {
		s.variables = variables.New()
	}

	s.log = log.New(io.Discard, "", 0)
	if cfg.Debug {
		s.log = log.New(s.stderr, fmt.Sprintf("[DEBUG] %s ", s.session[:8]), 0)
	}

	s.initializeEnvironment()

	home, _ := s.variables.UserHomeDir()
	s.history = history.New(s.fs, cfg.HistoryPath(home), cfg.HistorySize)

	s.resolver = resolver.New(s.fs, s.builtins, s.variables)
	s.parser = parser.New(
		parser.WithEnv(s.variables.Get),
		parser.WithHomeDir(s.variables.UserHomeDir),
		parser.WithFs(s.fs),
	)

	rt := &command.Runtime{
		Vars:     s.variables,
		History:  s.history,
		Fs:       s.fs,
		Stdin:    s.stdin,
		Stdout:   s.stdout,
		Stderr:   s.stderr,
		Classify: s.resolver.Classify,
		Log:      s.log,
	}
	s.executor = executor.New(rt, s.parser, s.resolver)

	s.interactive = cfg.Interactive ||
		(cfg.Command == "" && !cfg.ReadStdin && readline.IsTerminal(s.stdin))
	s.prompt = prompt.New(s.variables, cfg.EnableColors && readline.IsTerminal(s.stdout))

	return s
}

// Run executes the configured command, the interactive loop or the lines read
// from standard input, and returns the shell's exit status.
func (s *Shell) Run() (int, error) {
	s.log.Printf("session %s started (interactive=%t)", s.session, s.interactive)
	defer s.cleanup()

	if s.config.Command != "" {
		s.executeLine(s.config.Command)
		return s.exitCode, nil
	}

	if err := s.history.Load(); err != nil {
		s.log.Printf("history: %v", err)
	} else if file := s.history.File(); file != "" {
		s.log.Printf("history: %d entries loaded from %s", s.history.Size(), file)
	}

	if s.interactive {
		s.setupSignalHandlers()
		return s.exitCode, s.interactiveLoop()
	}

	return s.exitCode, s.readFromStdin()
}

func (s *Shell) initializeEnvironment() {
	if wd, err := os.Getwd(); err == nil {
		s.variables.Set(variables.Pwd, wd)
	}
	s.variables.Set("SHLVL", strconv.Itoa(s.getSHLVL()+1))
	s.variables.Set("PIPESH_VERSION", Version)
	if execPath, err := os.Executable(); err == nil {
		s.variables.Set("SHELL", execPath)
	} else {
		s.variables.Set("SHELL", "pipesh")
	}

	if _, ok := s.variables.Lookup("HOSTNAME"); !ok {
		if hostname, err := os.Hostname(); err == nil {
			s.variables.Set("HOSTNAME", hostname)
		}
	}

	if _, ok := s.variables.Lookup(variables.PS1); !ok {
		s.variables.Set(variables.PS1, s.config.PS1)
	}
}

func (s *Shell) getSHLVL() int {
	level, err := strconv.Atoi(s.variables.Get("SHLVL"))
	if err != nil || level < 0 {
		return 0
	}
	return level
}

// setupSignalHandlers keeps an interrupt aimed at a running command from
// terminating the shell itself.
func (s *Shell) setupSignalHandlers() {
	signal.Notify(s.sigChan, syscall.SIGINT)

	go func() {
		for sig := range s.sigChan {
			s.log.Printf("ignoring %v", sig)
		}
	}()
}

func (s *Shell) interactiveLoop() error {
	rl, err := readline.New(s.history, s.stdin, s.stdout, s.stderr)
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()

	fmt.Fprintf(s.stdout, "pipesh %s\n", Version)

	for s.running {
		line, err := rl.ReadLine(s.prompt.Generate())
		switch {
		case errors.Is(err, io.EOF):
			fmt.Fprintln(s.stdout, "exit")
			return nil
		case errors.Is(err, readline.ErrInterrupt):
			continue
		case err != nil:
			s.log.Printf("readline: %v", err)
			continue
		}

		line = strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}

		rl.AddHistory(line)
		s.executeLine(line)
	}

	return nil
}

func (s *Shell) readFromStdin() error {
	scanner := bufio.NewScanner(s.stdin)

	for s.running && scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		s.history.Add(line)
		s.executeLine(line)
	}

	return scanner.Err()
}

func (s *Shell) executeLine(line string) {
	s.log.Printf("line: %q", line)

	err := s.executor.Run(line)

	var exit *command.ExitRequest
	if errors.As(err, &exit) {
		s.exitCode = exit.Code
		s.running = false
		s.log.Printf("exit requested: %d", exit.Code)
		return
	}
	if err != nil {
		fmt.Fprintf(s.stderr, "pipesh: %v\n", err)
	}
}

func (s *Shell) cleanup() {
	if s.interactive {
		if err := s.history.Save(); err != nil {
			s.log.Printf("history: %v", err)
		}
		signal.Stop(s.sigChan)
	}
	close(s.sigChan)
}
