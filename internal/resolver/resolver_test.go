package resolver

import (
	"bytes"
	"os"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipesh/internal/builtin"
	"pipesh/internal/command"
	"pipesh/internal/variables"
)

func newTestResolver(t *testing.T, path string) (*Resolver, afero.Fs) {
	t.Helper()

	fs := afero.NewMemMapFs()
	for file, mode := range map[string]os.FileMode{
		"/bin/ls":           0755,
		"/bin/readme":       0644,
		"/usr/bin/ls":       0755,
		"/usr/bin/grep":     0755,
		"/opt/tool/special": 0700,
		"/opt/tool/other":   0755,
	} {
		require.NoError(t, afero.WriteFile(fs, file, []byte("#!/bin/sh\n"), mode))
	}
	require.NoError(t, fs.MkdirAll("/bin/subdir", 0755))

	vars := variables.NewFromEnviron([]string{"PATH=" + path})
	return New(fs, builtin.New(), vars), fs
}

func TestResolve(t *testing.T) {
	r, _ := newTestResolver(t, "/bin:/usr/bin:/opt/tool/special")

	cases := map[string]Descriptor{
		"echo":    {Kind: command.KindBuiltin, Name: "echo", Variant: builtin.Echo},
		"history": {Kind: command.KindBuiltin, Name: "history", Variant: builtin.History},
		"ls":      {Kind: command.KindExecutable, Name: "ls", Path: "/bin/ls"},
		"grep":    {Kind: command.KindExecutable, Name: "grep", Path: "/usr/bin/grep"},
		"special": {Kind: command.KindExecutable, Name: "special", Path: "/opt/tool/special"},
		"other":   {Kind: command.KindNotFound, Name: "other"},
		"readme":  {Kind: command.KindNotFound, Name: "readme"},
		"subdir":  {Kind: command.KindNotFound, Name: "subdir"},
		"missing": {Kind: command.KindNotFound, Name: "missing"},
		"":        {Kind: command.KindNotFound, Name: ""},

		"/usr/bin/grep": {Kind: command.KindExecutable, Name: "/usr/bin/grep", Path: "/usr/bin/grep"},
		"/bin/readme":   {Kind: command.KindNotFound, Name: "/bin/readme"},
	}

	for name, expected := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, expected, r.Resolve(name))
		})
	}
}

func TestResolve_firstMatchWins(t *testing.T) {
	r, _ := newTestResolver(t, "/usr/bin:/bin")

	assert.Equal(t, "/usr/bin/ls", r.Resolve("ls").Path)
}

func TestResolve_readsPathEachTime(t *testing.T) {
	r, _ := newTestResolver(t, "/bin")
	assert.Equal(t, command.KindNotFound, r.Resolve("grep").Kind)

	r.vars.Set(variables.Path, "/bin:/usr/bin")
	assert.Equal(t, command.KindExecutable, r.Resolve("grep").Kind)
}

func TestResolve_emptyEntryIsCurrentDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "local", nil, 0755))

	r := New(fs, builtin.New(), variables.NewFromEnviron([]string{"PATH=/bin:"}))

	d := r.Resolve("local")
	assert.Equal(t, command.KindExecutable, d.Kind)
	assert.Equal(t, "./local", d.Path)
}

func TestResolve_missingEntries(t *testing.T) {
	r, _ := newTestResolver(t, "/nope:/also/nope:/usr/bin")

	assert.Equal(t, "/usr/bin/ls", r.Resolve("ls").Path)
}

func TestClassify(t *testing.T) {
	r, _ := newTestResolver(t, "/bin")

	kind, path := r.Classify("cd")
	assert.Equal(t, command.KindBuiltin, kind)
	assert.Empty(t, path)

	kind, path = r.Classify("ls")
	assert.Equal(t, command.KindExecutable, kind)
	assert.Equal(t, "/bin/ls", path)

	kind, _ = r.Classify("nope")
	assert.Equal(t, command.KindNotFound, kind)
}

func TestDescriptor_Build(t *testing.T) {
	var stderr bytes.Buffer
	vars := variables.NewFromEnviron(nil)
	rt := &command.Runtime{Vars: vars, Stdout: &bytes.Buffer{}, Stderr: &stderr}

	cases := map[string]struct {
		descriptor Descriptor
		kind       command.Kind
		name       string
	}{
		"builtin":    {Descriptor{Kind: command.KindBuiltin, Name: "echo", Variant: builtin.Echo}, command.KindBuiltin, "echo"},
		"executable": {Descriptor{Kind: command.KindExecutable, Name: "ls", Path: "/bin/ls"}, command.KindExecutable, "ls"},
		"not-found":  {Descriptor{Kind: command.KindNotFound, Name: "nope"}, command.KindNotFound, "nope"},
		"assignment": {Assign("FOO", "bar"), command.KindAssignment, "FOO"},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			cmd := tc.descriptor.Build(rt, nil)
			assert.Equal(t, tc.kind, cmd.Kind())
			assert.Equal(t, tc.name, cmd.Name())
			assert.NotNil(t, cmd.Streams().Stdout)
			assert.NoError(t, cmd.Teardown())
		})
	}

	require.NoError(t, Assign("FOO", "bar").Build(rt, nil).Execute(nil))
	assert.Equal(t, "bar", vars.Get("FOO"))

	require.NoError(t, Descriptor{Kind: command.KindNotFound, Name: "nope"}.Build(rt, nil).Execute(nil))
	assert.Equal(t, "nope: Command not found\n", stderr.String())
}
