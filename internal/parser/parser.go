package parser

import (
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/spf13/afero"

	"pipesh/internal/ast"
)

// Parser turns one input line into a pipeline of stages. It resolves quoting,
// escaping, variable expansion, tilde and glob expansion and stream
// redirections. Parsing never fails: malformed input degrades to the closest
// sensible words.
type Parser struct {
	getenv  func(string) string
	homeDir func() (string, error)
	glob    func(pattern string) ([]string, error)
}

type Option func(*Parser)

// WithEnv sets the variable lookup used by $NAME expansion. Missing variables
// must resolve to "".
func WithEnv(getenv func(string) string) Option {
	return func(p *Parser) {
		p.getenv = getenv
	}
}

// WithHomeDir sets the resolver used by tilde expansion.
func WithHomeDir(homeDir func() (string, error)) Option {
	return func(p *Parser) {
		p.homeDir = homeDir
	}
}

// WithGlob sets the matcher used for words containing *, ? or [.
func WithGlob(glob func(pattern string) ([]string, error)) Option {
	return func(p *Parser) {
		p.glob = glob
	}
}

// WithFs globs against the given filesystem. Relative patterns resolve
// against the filesystem's working directory.
func WithFs(fs afero.Fs) Option {
	return WithGlob(func(pattern string) ([]string, error) {
		return afero.Glob(fs, pattern)
	})
}

func New(opts ...Option) *Parser {
	p := &Parser{
		getenv:  os.Getenv,
		homeDir: os.UserHomeDir,
	}
	WithFs(afero.NewOsFs())(p)

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Parse splits line into stages on every unquoted, unescaped '|'. An empty
// or blank line yields a single stage with no words.
func (p *Parser) Parse(line string) *ast.Pipeline {
	l := &lexer{
		parser:   p,
		input:    []rune(line),
		stack:    newStack(),
		stage:    newStage(),
		pipeline: &ast.Pipeline{},
	}

	for l.pos = 0; l.pos < len(l.input); l.pos++ {
		l.step(l.input[l.pos], l.escaped(l.pos))
	}
	l.flush()

	return l.pipeline
}

func newStage() *ast.Stage {
	return &ast.Stage{Args: []string{}}
}

// pendingRedirect describes the redirect being read by a redirect state.
type pendingRedirect struct {
	stderr bool
	mode   ast.RedirectMode
	quoted bool
}

type lexer struct {
	parser *Parser
	input  []rune
	pos    int
	stack  *stack

	word     []rune
	name     []rune
	redirect pendingRedirect

	stage    *ast.Stage
	pipeline *ast.Pipeline
}

// escaped reports whether the rune at i follows an unescaped backslash. Only
// two runes of lookback are considered, so runs of three or more backslashes
// are not resolved the way a POSIX shell would.
func (l *lexer) escaped(i int) bool {
	if i < 1 || l.input[i-1] != '\\' {
		return false
	}
	return !(i >= 2 && l.input[i-2] == '\\')
}

func (l *lexer) afterSpace() bool {
	return l.pos == 0 || isSpace(l.input[l.pos-1])
}

func (l *lexer) peek() (rune, bool) {
	if l.pos+1 >= len(l.input) {
		return 0, false
	}
	return l.input[l.pos+1], true
}

func (l *lexer) step(ch rune, escaped bool) {
	switch state := l.stack.top(); state {
	case StateDefault:
		l.lexDefault(ch, escaped)
	case StateSingleQuote:
		l.lexSingleQuote(ch, escaped)
	case StateDoubleQuote:
		l.lexDoubleQuote(ch, escaped)
	case StateRedirectDecider:
		l.lexRedirectDecider(ch, escaped)
	case StateRedirectAppend, StateRedirectError, StateRedirectOut:
		l.lexRedirect(ch, escaped)
	case StateEnvVariable:
		l.lexEnvVariable(ch, escaped)
	default:
		panic("parser: unhandled state " + state.String())
	}
}

func (l *lexer) lexDefault(ch rune, escaped bool) {
	switch {
	case escaped:
		l.word = append(l.word, ch)
	case isSpace(ch):
		l.closeWord()
	case ch == '\'':
		l.closeWord()
		l.stack.push(StateSingleQuote)
	case ch == '"':
		l.closeWord()
		l.stack.push(StateDoubleQuote)
	case ch == '>':
		l.stack.push(StateRedirectDecider)
	case ch == '$' && l.afterSpace():
		l.closeWord()
		l.stack.push(StateEnvVariable)
	case ch == '|':
		l.closeWord()
		l.finishStage()
	case ch == '\\':
		// Takes effect through the escaped flag of the next rune.
	default:
		l.word = append(l.word, ch)
	}
}

func (l *lexer) lexSingleQuote(ch rune, escaped bool) {
	if ch == '\'' && !escaped {
		l.closeQuote()
		return
	}
	l.word = append(l.word, ch)
}

func (l *lexer) lexDoubleQuote(ch rune, escaped bool) {
	switch {
	case escaped:
		l.word = append(l.word, ch)
	case ch == '"':
		l.closeQuote()
	case ch == '$':
		l.stack.push(StateEnvVariable)
	case ch == '\\':
		if next, ok := l.peek(); ok && strings.ContainsRune("\\$\"\n", next) {
			return
		}
		l.word = append(l.word, ch)
	default:
		l.word = append(l.word, ch)
	}
}

// lexRedirectDecider runs on the rune following '>'. It decides which stream
// is redirected and in which mode, then hands over to a redirect state.
func (l *lexer) lexRedirectDecider(ch rune, escaped bool) {
	l.decide()

	if ch == '>' && !escaped {
		l.redirect.mode = ast.RedirectAppend
		l.stack.replace(StateRedirectAppend)
		return
	}

	if l.redirect.stderr {
		l.stack.replace(StateRedirectError)
	} else {
		l.stack.replace(StateRedirectOut)
	}
	l.step(ch, escaped)
}

// decide consumes the file descriptor prefix accumulated before '>'. "2"
// selects the error stream and "1" is an explicit stdout marker; any other
// text is an ordinary word.
func (l *lexer) decide() {
	l.redirect = pendingRedirect{mode: ast.RedirectTruncate}

	switch string(l.word) {
	case "2":
		l.redirect.stderr = true
		l.word = nil
	case "1":
		l.word = nil
	default:
		l.closeWord()
	}
}

func (l *lexer) lexRedirect(ch rune, escaped bool) {
	switch {
	case escaped:
		l.word = append(l.word, ch)
	case isSpace(ch):
		if len(l.word) == 0 && !l.redirect.quoted {
			return
		}
		l.finishRedirect()
	case ch == '\'':
		l.stack.push(StateSingleQuote)
	case ch == '"':
		l.stack.push(StateDoubleQuote)
	case ch == '$':
		l.stack.push(StateEnvVariable)
	case ch == '\\':
	default:
		l.word = append(l.word, ch)
	}
}

func (l *lexer) lexEnvVariable(ch rune, escaped bool) {
	if !escaped && (isSpace(ch) || ch == '"') {
		l.finishEnvVariable()
		l.step(ch, escaped)
		return
	}
	l.name = append(l.name, ch)
}

// closeWord ends the current unquoted word and adds its expansions to the
// stage.
func (l *lexer) closeWord() {
	if len(l.word) == 0 {
		return
	}
	word := string(l.word)
	l.word = nil

	l.stage.Args = append(l.stage.Args, l.expand(word)...)
}

// closeQuote leaves a quoted section. Quoted text becomes a word of its own
// unless it is part of a redirect path.
func (l *lexer) closeQuote() {
	l.stack.pop()

	if l.stack.top().isRedirect() {
		l.redirect.quoted = true
		return
	}

	if len(l.word) > 0 {
		l.stage.Args = append(l.stage.Args, string(l.word))
	}
	l.word = nil
}

func (l *lexer) finishEnvVariable() {
	name := string(l.name)
	l.name = nil
	l.stack.pop()

	if name == "" {
		l.word = append(l.word, '$')
		return
	}
	l.word = append(l.word, []rune(l.parser.getenv(name))...)
}

// finishRedirect records the accumulated path as the stage's target for the
// pending stream. A later redirect of the same stream replaces an earlier one.
func (l *lexer) finishRedirect() {
	path := string(l.word)
	l.word = nil
	if !l.redirect.quoted {
		path = l.expandTilde(path)
	}

	if path != "" {
		target := &ast.Redirect{Path: path, Mode: l.redirect.mode}
		if l.redirect.stderr {
			l.stage.Stderr = target
		} else {
			l.stage.Stdout = target
		}
	}

	l.redirect = pendingRedirect{}
	l.stack.pop()
}

func (l *lexer) finishStage() {
	l.pipeline.Stages = append(l.pipeline.Stages, l.stage)
	l.stage = newStage()
}

// flush unwinds every open state at the end of input as if it had been
// terminated, then finishes the last stage.
func (l *lexer) flush() {
	for l.stack.top() != StateDefault {
		switch l.stack.top() {
		case StateSingleQuote, StateDoubleQuote:
			l.closeQuote()
		case StateEnvVariable:
			l.finishEnvVariable()
		case StateRedirectDecider:
			l.decide()
			l.stack.replace(StateRedirectOut)
		default:
			l.finishRedirect()
		}
	}

	l.closeWord()
	l.finishStage()
}

// expand applies tilde expansion and then glob expansion to an unquoted word.
// A pattern without matches is kept as written.
func (l *lexer) expand(word string) []string {
	word = l.expandTilde(word)
	if !strings.ContainsAny(word, "*?[") {
		return []string{word}
	}

	matches, err := l.parser.glob(word)
	if err != nil || len(matches) == 0 {
		return []string{word}
	}

	sort.Strings(matches)
	return matches
}

func (l *lexer) expandTilde(word string) string {
	if word != "~" && !strings.HasPrefix(word, "~/") {
		return word
	}

	home, err := l.parser.homeDir()
	if err != nil || home == "" {
		return word
	}
	return home + word[1:]
}

func isSpace(ch rune) bool {
	return unicode.IsSpace(ch)
}
