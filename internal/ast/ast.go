package ast

type RedirectMode int

const (
	RedirectTruncate RedirectMode = iota
	RedirectAppend
)

func (m RedirectMode) String() string {
	switch m {
	case RedirectTruncate:
		return "truncate"
	case RedirectAppend:
		return "append"
	default:
		return "unknown"
	}
}

// Redirect sends one standard stream of a stage to a file.
type Redirect struct {
	Path string
	Mode RedirectMode
}

// Stage is one segment of a pipeline: its argv plus the files its output and
// error streams are redirected to, if any.
type Stage struct {
	Args   []string
	Stdout *Redirect
	Stderr *Redirect
}

// Name returns the command name of the stage, or "" for an empty stage.
func (s *Stage) Name() string {
	if len(s.Args) == 0 {
		return ""
	}
	return s.Args[0]
}

// Empty reports whether the stage holds no words.
func (s *Stage) Empty() bool {
	return len(s.Args) == 0
}

// Pipeline is the ordered list of stages parsed from one input line. It
// always holds at least one stage.
type Pipeline struct {
	Stages []*Stage
}

func (p *Pipeline) Len() int {
	return len(p.Stages)
}
