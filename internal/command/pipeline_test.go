package command

import (
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"pipesh/internal/builtin"
)

func lookPath(t *testing.T, name string) string {
	t.Helper()

	path, err := exec.LookPath(name)
	if err != nil {
		t.Skipf("%s not available: %v", name, err)
	}
	return path
}

func (rt *testRuntime) executable(t *testing.T, name string) Command {
	return NewExecutable(rt.Runtime, name, lookPath(t, name), nil)
}

func (rt *testRuntime) builtin(variant builtin.Variant) Command {
	return NewBuiltin(rt.Runtime, variant.String(), variant, nil)
}

// finishWithin runs fn and fails the test when it has not returned after d.
func finishWithin(t *testing.T, d time.Duration, fn func() error) error {
	t.Helper()

	result := make(chan error, 1)
	go func() { result <- fn() }()

	select {
	case err := <-result:
		return err
	case <-time.After(d):
		t.Fatalf("did not finish within %v", d)
		return nil
	}
}

func TestDupFile_closeOnExec(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	dup, err := dupFile(w)
	require.NoError(t, err)
	defer dup.Close()

	flags, err := unix.FcntlInt(dup.Fd(), unix.F_GETFD, 0)
	require.NoError(t, err)
	assert.NotZero(t, flags&unix.FD_CLOEXEC)
}

func TestExecutable(t *testing.T) {
	rt := newTestRuntime(t)
	cmd := rt.executable(t, "echo")

	assert.Equal(t, KindExecutable, cmd.Kind())
	require.NoError(t, cmd.Execute([]string{"Hello", "World"}))
	assert.Equal(t, "Hello World\n", rt.stdout.String())
}

func TestExecutable_environment(t *testing.T) {
	rt := newTestRuntime(t)
	rt.Vars.Set("GREETING", "hi")
	cmd := rt.executable(t, "env")

	require.NoError(t, cmd.Execute(nil))
	assert.Contains(t, strings.Split(rt.stdout.String(), "\n"), "GREETING=hi")
}

func TestExecutable_nonZeroExitIsNotAnError(t *testing.T) {
	rt := newTestRuntime(t)
	cmd := rt.executable(t, "false")

	assert.NoError(t, cmd.Execute(nil))
}

func TestExecutable_startFailure(t *testing.T) {
	rt := newTestRuntime(t)
	cmd := NewExecutable(rt.Runtime, "ghost", "/definitely/not/here", nil)

	err := cmd.Execute(nil)
	var cmdErr *Error
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, "ghost", cmdErr.Name)
}

func TestPipeline_external(t *testing.T) {
	rt := newTestRuntime(t)

	p := NewPipeline(rt.Runtime, []Stage{
		{Command: rt.executable(t, "echo"), Args: []string{"hello", "pipes"}},
		{Command: rt.executable(t, "tr"), Args: []string{"a-z", "A-Z"}},
		{Command: rt.executable(t, "cat")},
	})

	assert.Equal(t, KindPipeline, p.Kind())
	assert.Equal(t, "echo | tr | cat", p.Name())

	require.NoError(t, p.Execute(nil))
	require.NoError(t, p.Teardown())
	assert.Equal(t, "HELLO PIPES\n", rt.stdout.String())
}

func TestPipeline_largeOutput(t *testing.T) {
	rt := newTestRuntime(t)

	p := NewPipeline(rt.Runtime, []Stage{
		{Command: rt.executable(t, "seq"), Args: []string{"1", "200000"}},
		{Command: rt.executable(t, "cat")},
		{Command: rt.executable(t, "wc"), Args: []string{"-l"}},
	})

	require.NoError(t, p.Execute(nil))
	assert.Equal(t, "200000", strings.TrimSpace(rt.stdout.String()))
}

func TestPipeline_builtinFirst(t *testing.T) {
	rt := newTestRuntime(t)

	p := NewPipeline(rt.Runtime, []Stage{
		{Command: rt.builtin(builtin.Echo), Args: []string{"from", "builtin"}},
		{Command: rt.executable(t, "tr"), Args: []string{"a-z", "A-Z"}},
	})

	require.NoError(t, p.Execute(nil))
	assert.Equal(t, "FROM BUILTIN\n", rt.stdout.String())
}

func TestPipeline_builtinFirstFeedsSeveralExecutables(t *testing.T) {
	rt := newTestRuntime(t)

	p := NewPipeline(rt.Runtime, []Stage{
		{Command: rt.builtin(builtin.Echo), Args: []string{"x"}},
		{Command: rt.executable(t, "cat")},
		{Command: rt.executable(t, "cat")},
	})
	defer p.Teardown()

	require.NoError(t, finishWithin(t, 10*time.Second, func() error {
		return p.Execute(nil)
	}))
	assert.Equal(t, "x\n", rt.stdout.String())
}

func TestPipeline_builtinMiddle(t *testing.T) {
	rt := newTestRuntime(t)

	p := NewPipeline(rt.Runtime, []Stage{
		{Command: rt.executable(t, "seq"), Args: []string{"1", "3"}},
		{Command: rt.builtin(builtin.Echo), Args: []string{"ignored", "input"}},
		{Command: rt.executable(t, "cat")},
	})

	require.NoError(t, p.Execute(nil))
	assert.Equal(t, "ignored input\n", rt.stdout.String())
}

func TestPipeline_builtinLast(t *testing.T) {
	rt := newTestRuntime(t)

	p := NewPipeline(rt.Runtime, []Stage{
		{Command: rt.executable(t, "seq"), Args: []string{"1", "100000"}},
		{Command: rt.builtin(builtin.Echo), Args: []string{"done"}},
	})

	require.NoError(t, p.Execute(nil))
	assert.Equal(t, "done\n", rt.stdout.String())
}

func TestPipeline_builtinErrorsStayInStage(t *testing.T) {
	rt := newTestRuntime(t)

	p := NewPipeline(rt.Runtime, []Stage{
		{Command: rt.builtin(builtin.Exit), Args: []string{"7"}},
		{Command: rt.builtin(builtin.Pwd), Args: []string{"extra"}},
	})

	require.NoError(t, p.Execute(nil))
	assert.Equal(t, "pwd: too many arguments\n", rt.stderr.String())
}

func TestPipeline_notFoundStage(t *testing.T) {
	rt := newTestRuntime(t)

	p := NewPipeline(rt.Runtime, []Stage{
		{Command: NewNotFound(rt.Runtime, "nope", nil)},
		{Command: rt.executable(t, "wc"), Args: []string{"-c"}},
	})

	require.NoError(t, p.Execute(nil))
	assert.Equal(t, "0", strings.TrimSpace(rt.stdout.String()))
	assert.Equal(t, "nope: Command not found\n", rt.stderr.String())
}

func TestPipeline_startFailure(t *testing.T) {
	rt := newTestRuntime(t)

	p := NewPipeline(rt.Runtime, []Stage{
		{Command: rt.executable(t, "seq"), Args: []string{"1", "100000"}},
		{Command: NewExecutable(rt.Runtime, "ghost", "/definitely/not/here", nil)},
		{Command: rt.executable(t, "cat")},
	})

	err := p.Execute(nil)
	var cmdErr *Error
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, "ghost", cmdErr.Name)
	assert.Empty(t, rt.stdout.String())
}

func TestPipeline_Start(t *testing.T) {
	rt := newTestRuntime(t)

	p := NewPipeline(rt.Runtime, []Stage{
		{Command: rt.builtin(builtin.Echo), Args: []string{"async"}},
		{Command: rt.executable(t, "cat")},
	})

	proc, err := p.Start(nil)
	require.NoError(t, err)
	require.NoError(t, proc.Wait())
	assert.Equal(t, "async\n", rt.stdout.String())
}
