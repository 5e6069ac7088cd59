package initialize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caelinsutch/agentlink/pkg/filesystem"
)

func TestRunScaffoldsTree(t *testing.T) {
	fsys := filesystem.NewMemory()
	require.NoError(t, fsys.MkdirAll("/home/u/proj", 0755))

	result, err := Run(Options{FS: fsys, Dir: "/home/u/proj"})
	require.NoError(t, err)
	assert.False(t, result.AlreadyInitialized)

	for _, dir := range []string{
		"/home/u/proj/.agentlink",
		"/home/u/proj/.agentlink/commands",
		"/home/u/proj/.agentlink/hooks",
		"/home/u/proj/.agentlink/skills",
	} {
		info, err := fsys.Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir(), dir)
	}

	cfg, err := fsys.ReadFile("/home/u/proj/.agentlink/config.yaml")
	require.NoError(t, err)
	assert.Contains(t, string(cfg), "extends:")

	instr, err := fsys.ReadFile("/home/u/proj/.agentlink/AGENTS.md")
	require.NoError(t, err)
	assert.Contains(t, string(instr), "# Project instructions")
}

func TestRunAlreadyInitialized(t *testing.T) {
	fsys := filesystem.NewMemory()
	require.NoError(t, fsys.MkdirAll("/home/u/proj/.agentlink", 0755))
	require.NoError(t, fsys.WriteFile("/home/u/proj/.agentlink/config.yaml", []byte("keep"), 0644))

	result, err := Run(Options{FS: fsys, Dir: "/home/u/proj"})
	require.NoError(t, err)
	assert.True(t, result.AlreadyInitialized)

	cfg, err := fsys.ReadFile("/home/u/proj/.agentlink/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "keep", string(cfg))
}
