package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "migrate", "create-librarian"}, names)

	f := root.PersistentFlags().Lookup("config")
	require.NotNil(t, f)
	assert.Equal(t, "config/config.yaml", f.DefValue)
}

func TestServeMemoryRejectedInRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mode: release\nauth:\n  jwt_secret: x\n"), 0o600))

	root := newRootCmd()
	root.SetArgs([]string{"serve", "--memory", "--config", path})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only allowed in dev mode")
}

func TestCreateLibrarianRequiresFlags(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"create-librarian", "--name", "Ada"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email")
}
