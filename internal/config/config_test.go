package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestNew(t *testing.T) {
	c := New()

	assert.Equal(t, 1000, c.HistorySize)
	assert.Equal(t, "~/.pipesh_history", c.HistoryFile)
	assert.True(t, c.EnableColors)
	assert.NoError(t, c.Validate())
}

func TestLoadEnv(t *testing.T) {
	c := New()

	err := c.LoadEnv(env(map[string]string{
		EnvHistoryFile: "/tmp/hist",
		EnvHistorySize: "50",
		EnvDebug:       "true",
	}))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/hist", c.HistoryFile)
	assert.Equal(t, 50, c.HistorySize)
	assert.True(t, c.Debug)
}

func TestLoadEnv_empty(t *testing.T) {
	c := New()

	require.NoError(t, c.LoadEnv(env(nil)))
	assert.Equal(t, New(), c)
}

func TestLoadEnv_invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"size":  {EnvHistorySize: "lots"},
		"debug": {EnvDebug: "maybe"},
	}

	for tn, vars := range cases {
		t.Run(tn, func(t *testing.T) {
			assert.Error(t, New().LoadEnv(env(vars)))
		})
	}
}

func TestValidate(t *testing.T) {
	c := New()
	c.HistorySize = -1
	assert.Error(t, c.Validate())

	c = New()
	c.PS1 = ""
	assert.Error(t, c.Validate())

	c = New()
	c.HistorySize = 0
	assert.NoError(t, c.Validate())
}

func TestHistoryPath(t *testing.T) {
	c := New()
	assert.Equal(t, "/home/gopher/.pipesh_history", c.HistoryPath("/home/gopher"))

	c.HistoryFile = "/var/tmp/h"
	assert.Equal(t, "/var/tmp/h", c.HistoryPath("/home/gopher"))

	c.HistoryFile = ""
	assert.Equal(t, "", c.HistoryPath("/home/gopher"))

	c.HistoryFile = "~/.pipesh_history"
	assert.Equal(t, "", c.HistoryPath(""))
}
