package status

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caelinsutch/agentlink/pkg/clients"
	"github.com/caelinsutch/agentlink/pkg/filesystem"
)

func setupProject(t *testing.T) (home, project string) {
	t.Helper()
	home = t.TempDir()
	project = filepath.Join(home, "proj")
	require.NoError(t, os.MkdirAll(filepath.Join(project, ".agentlink", "commands"), 0755))
	require.NoError(t, os.WriteFile(
		filepath.Join(project, ".agentlink", "commands", "build.md"), []byte("# build"), 0644))
	require.NoError(t, os.WriteFile(
		filepath.Join(project, ".agentlink", "AGENTS.md"), []byte("# proj"), 0644))
	return home, project
}

func TestRunReportsPendingChanges(t *testing.T) {
	home, project := setupProject(t)

	result, err := Run(Options{
		FS:         filesystem.NewOS(),
		WorkingDir: project,
		HomeDir:    home,
		Clients:    []clients.Client{clients.Claude},
		Scope:      clients.ScopeProject,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Plan)
	assert.NotEmpty(t, result.Plan.Changes())

	report := strings.Join(result.Lines, "\n")
	assert.Contains(t, report, project)
	assert.Contains(t, report, "claude")
	assert.Contains(t, report, "Pending changes")

	// Status never mutates.
	_, statErr := os.Lstat(filepath.Join(project, "CLAUDE.md"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunReportsConflicts(t *testing.T) {
	home, project := setupProject(t)
	require.NoError(t, os.MkdirAll(filepath.Join(project, ".claude", "commands"), 0755))

	result, err := Run(Options{
		FS:         filesystem.NewOS(),
		WorkingDir: project,
		HomeDir:    home,
		Clients:    []clients.Client{clients.Claude},
		Scope:      clients.ScopeProject,
	})
	require.NoError(t, err)
	assert.Contains(t, strings.Join(result.Lines, "\n"), "Conflicts (1):")
}

func TestRunNoTreeIsNotAnError(t *testing.T) {
	home := t.TempDir()
	dir := filepath.Join(home, "plain")
	require.NoError(t, os.MkdirAll(dir, 0755))

	result, err := Run(Options{
		FS:         filesystem.NewOS(),
		WorkingDir: dir,
		HomeDir:    home,
	})
	require.NoError(t, err)
	assert.Nil(t, result.Plan)
	assert.Contains(t, result.Lines[0], "No canonical tree")
}

func TestRunGlobalScopePreviewsHomeRoot(t *testing.T) {
	home := t.TempDir()
	globalRoot := filepath.Join(home, ".agentlink")
	require.NoError(t, os.MkdirAll(filepath.Join(globalRoot, "commands"), 0755))
	require.NoError(t, os.WriteFile(
		filepath.Join(globalRoot, "commands", "deploy.md"), []byte("# deploy"), 0644))

	result, err := Run(Options{
		FS:         filesystem.NewOS(),
		WorkingDir: home,
		HomeDir:    home,
		Clients:    []clients.Client{clients.Claude},
		Scope:      clients.ScopeGlobal,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Plan)

	changes := result.Plan.Changes()
	require.Len(t, changes, 1)
	assert.Equal(t, filepath.Join(home, ".claude", "commands"), changes[0].Target)
	assert.Equal(t, filepath.Join(globalRoot, "commands"), changes[0].Source)
}

func TestRunGlobalScopeWithoutHomeRootReports(t *testing.T) {
	home, project := setupProject(t)

	result, err := Run(Options{
		FS:         filesystem.NewOS(),
		WorkingDir: project,
		HomeDir:    home,
		Clients:    []clients.Client{clients.Claude},
		Scope:      clients.ScopeGlobal,
	})
	require.NoError(t, err)
	assert.Nil(t, result.Plan)
	assert.Contains(t, result.Lines[0], "No global canonical tree")
}
