package sync

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caelinsutch/agentlink/pkg/clients"
	"github.com/caelinsutch/agentlink/pkg/errors"
	"github.com/caelinsutch/agentlink/pkg/filesystem"
	"github.com/caelinsutch/agentlink/pkg/types"
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

func TestRunLinksProjectResources(t *testing.T) {
	home, project := setupProject(t)

	result, err := Run(Options{
		FS:            filesystem.NewOS(),
		WorkingDir:    project,
		HomeDir:       home,
		Clients:       []clients.Client{clients.Claude, clients.Codex},
		Scope:         clients.ScopeProject,
		BackupBaseDir: filepath.Join(home, "backups"),
	})
	require.NoError(t, err)
	require.NotNil(t, result.Apply)
	assert.Greater(t, result.Apply.Created, 0)

	// Claude reads the instructions under its own filename; codex
	// reads AGENTS.md in the project root. Both resolve to the
	// canonical file.
	for _, name := range []string{"CLAUDE.md", "AGENTS.md"} {
		dest, err := os.Readlink(filepath.Join(project, name))
		require.NoError(t, err, name)
		assert.Equal(t, filepath.Join(project, ".agentlink", "AGENTS.md"), dest, name)
	}

	dest, err := os.Readlink(filepath.Join(project, ".claude", "commands"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(project, ".agentlink", "commands"), dest)

	dest, err = os.Readlink(filepath.Join(project, ".codex", "prompts"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(project, ".agentlink", "commands"), dest)
}

func TestRunIsIdempotent(t *testing.T) {
	home, project := setupProject(t)
	opts := Options{
		FS:            filesystem.NewOS(),
		WorkingDir:    project,
		HomeDir:       home,
		Clients:       []clients.Client{clients.Claude},
		Scope:         clients.ScopeProject,
		BackupBaseDir: filepath.Join(home, "backups"),
	}

	first, err := Run(opts)
	require.NoError(t, err)
	require.Greater(t, first.Apply.Created, 0)

	second, err := Run(opts)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Apply.Created)
	assert.Equal(t, 0, second.Apply.Updated)
}

func TestRunFinalizesBackupSession(t *testing.T) {
	home, project := setupProject(t)

	result, err := Run(Options{
		FS:            filesystem.NewOS(),
		WorkingDir:    project,
		HomeDir:       home,
		Clients:       []clients.Client{clients.Claude},
		Scope:         clients.ScopeProject,
		BackupBaseDir: filepath.Join(home, "backups"),
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.BackupDir)

	data, err := os.ReadFile(filepath.Join(result.BackupDir, "manifest.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "finalized: true")
}

func TestRunConflictBlocksWithoutForce(t *testing.T) {
	home, project := setupProject(t)
	// A real directory where the commands link should go.
	conflicting := filepath.Join(project, ".claude", "commands")
	require.NoError(t, os.MkdirAll(conflicting, 0755))

	result, err := Run(Options{
		FS:            filesystem.NewOS(),
		WorkingDir:    project,
		HomeDir:       home,
		Clients:       []clients.Client{clients.Claude},
		Scope:         clients.ScopeProject,
		BackupBaseDir: filepath.Join(home, "backups"),
	})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrTargetConflict))
	assert.Len(t, result.Plan.Conflicts(), 1)

	// The conflicting dir and the other targets are untouched.
	info, statErr := os.Lstat(conflicting)
	require.NoError(t, statErr)
	assert.True(t, info.IsDir())
	_, statErr = os.Lstat(filepath.Join(project, "CLAUDE.md"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunForceAppliesAroundConflict(t *testing.T) {
	home, project := setupProject(t)
	conflicting := filepath.Join(project, ".claude", "commands")
	require.NoError(t, os.MkdirAll(conflicting, 0755))

	result, err := Run(Options{
		FS:            filesystem.NewOS(),
		WorkingDir:    project,
		HomeDir:       home,
		Clients:       []clients.Client{clients.Claude},
		Scope:         clients.ScopeProject,
		Force:         true,
		BackupBaseDir: filepath.Join(home, "backups"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Apply.Conflicts)

	// The conflicting target stays a real dir; the rest got linked.
	info, statErr := os.Lstat(conflicting)
	require.NoError(t, statErr)
	assert.True(t, info.IsDir())
	_, statErr = os.Readlink(filepath.Join(project, "CLAUDE.md"))
	assert.NoError(t, statErr)
}

func TestRunDryRunMutatesNothing(t *testing.T) {
	home, project := setupProject(t)

	result, err := Run(Options{
		FS:            filesystem.NewOS(),
		WorkingDir:    project,
		HomeDir:       home,
		Clients:       []clients.Client{clients.Claude},
		Scope:         clients.ScopeProject,
		DryRun:        true,
		BackupBaseDir: filepath.Join(home, "backups"),
	})
	require.NoError(t, err)
	assert.Greater(t, result.Apply.Created, 0)
	assert.Empty(t, result.BackupDir)

	_, statErr := os.Lstat(filepath.Join(project, "CLAUDE.md"))
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(filepath.Join(home, "backups"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunNoTreeFails(t *testing.T) {
	home := t.TempDir()
	dir := filepath.Join(home, "plain")
	require.NoError(t, os.MkdirAll(dir, 0755))

	_, err := Run(Options{
		FS:         filesystem.NewOS(),
		WorkingDir: dir,
		HomeDir:    home,
		Clients:    []clients.Client{clients.Claude},
	})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrChainNotFound))
}

func TestRunBackupRetentionPrunes(t *testing.T) {
	home, project := setupProject(t)
	backups := filepath.Join(home, "backups")
	for _, name := range []string{"old-sync-1", "old-sync-2", "old-sync-3"} {
		require.NoError(t, os.MkdirAll(filepath.Join(backups, name), 0755))
	}

	_, err := Run(Options{
		FS:              filesystem.NewOS(),
		WorkingDir:      project,
		HomeDir:         home,
		Clients:         []clients.Client{clients.Claude},
		Scope:           clients.ScopeProject,
		BackupBaseDir:   backups,
		BackupRetention: 2,
	})
	require.NoError(t, err)

	entries, err := os.ReadDir(backups)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRunGlobalScopeResolvesHomeRootAlone(t *testing.T) {
	home := t.TempDir()
	globalRoot := filepath.Join(home, ".agentlink")
	require.NoError(t, os.MkdirAll(filepath.Join(globalRoot, "commands"), 0755))
	require.NoError(t, os.WriteFile(
		filepath.Join(globalRoot, "commands", "deploy.md"), []byte("# deploy"), 0644))
	require.NoError(t, os.WriteFile(
		filepath.Join(globalRoot, "AGENTS.md"), []byte("# global"), 0644))

	result, err := Run(Options{
		FS:            filesystem.NewOS(),
		WorkingDir:    home,
		HomeDir:       home,
		Clients:       []clients.Client{clients.Claude},
		Scope:         clients.ScopeGlobal,
		BackupBaseDir: filepath.Join(home, "backups"),
	})
	require.NoError(t, err)
	assert.Greater(t, result.Apply.Created, 0)

	// Targets land in the home-directory layout, sourced straight
	// from the global root.
	dest, err := os.Readlink(filepath.Join(home, ".claude", "CLAUDE.md"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(globalRoot, "AGENTS.md"), dest)

	dest, err = os.Readlink(filepath.Join(home, ".claude", "commands"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(globalRoot, "commands"), dest)
}

func TestRunGlobalScopeWithoutHomeRootFails(t *testing.T) {
	home, project := setupProject(t)

	_, err := Run(Options{
		FS:         filesystem.NewOS(),
		WorkingDir: project,
		HomeDir:    home,
		Clients:    []clients.Client{clients.Claude},
		Scope:      clients.ScopeGlobal,
	})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrChainNotFound))
}

// flakySymlinkFS fails the nth Symlink call and passes everything
// else through, so an apply can be made to die partway.
type flakySymlinkFS struct {
	types.FS
	calls  int
	failOn int
}

func (f *flakySymlinkFS) Symlink(oldname, newname string) error {
	f.calls++
	if f.calls == f.failOn {
		return fmt.Errorf("symlink %s: device error", newname)
	}
	return f.FS.Symlink(oldname, newname)
}

func TestRunRollsBackOnApplyFailure(t *testing.T) {
	home, project := setupProject(t)

	// CLAUDE.md starts as a symlink to somewhere else so the restore
	// is observable.
	staleDest := filepath.Join(project, ".agentlink", "notes.md")
	require.NoError(t, os.WriteFile(staleDest, []byte("old"), 0644))
	require.NoError(t, os.Symlink(staleDest, filepath.Join(project, "CLAUDE.md")))

	// Call one relinks CLAUDE.md, call two (the commands link) dies,
	// and the rollback's own restore goes through.
	fsys := &flakySymlinkFS{FS: filesystem.NewOS(), failOn: 2}
	result, err := Run(Options{
		FS:            fsys,
		WorkingDir:    project,
		HomeDir:       home,
		Clients:       []clients.Client{clients.Claude},
		Scope:         clients.ScopeProject,
		BackupBaseDir: filepath.Join(home, "backups"),
	})
	require.Error(t, err)
	require.NotNil(t, result)

	dest, readErr := os.Readlink(filepath.Join(project, "CLAUDE.md"))
	require.NoError(t, readErr)
	assert.Equal(t, staleDest, dest)

	_, statErr := os.Lstat(filepath.Join(project, ".claude", "commands"))
	assert.True(t, os.IsNotExist(statErr))
}
