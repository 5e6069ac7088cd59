// Package sync implements the full projection pipeline: detect the
// chain, resolve and merge resources, build mappings and a link plan,
// then apply it bracketed by a backup session.
package sync

import (
	"time"

	"github.com/caelinsutch/agentlink/pkg/backup"
	"github.com/caelinsutch/agentlink/pkg/chain"
	"github.com/caelinsutch/agentlink/pkg/clients"
	"github.com/caelinsutch/agentlink/pkg/errors"
	"github.com/caelinsutch/agentlink/pkg/linkplan"
	"github.com/caelinsutch/agentlink/pkg/logging"
	"github.com/caelinsutch/agentlink/pkg/mapping"
	"github.com/caelinsutch/agentlink/pkg/paths"
	"github.com/caelinsutch/agentlink/pkg/types"
)

// Options configures one sync run.
type Options struct {
	FS         types.FS
	WorkingDir string
	HomeDir    string
	// Clients limits projection to the named tools. Empty means
	// auto-detect, falling back to the default set.
	Clients []clients.Client
	Scope   clients.Scope
	DryRun  bool
	Force   bool
	// BackupBaseDir overrides where backup sessions are written.
	// Empty means the XDG data dir.
	BackupBaseDir string
	// BackupRetention is how many past sessions to keep. Zero keeps
	// everything.
	BackupRetention int
}

// Result reports what one sync run did.
type Result struct {
	Chain     *chain.Chain
	Clients   []clients.Client
	Plan      *linkplan.Plan
	Apply     *linkplan.ApplyResult
	BackupDir string
}

// Run executes the pipeline. On apply failure the backup session is
// rolled back so targets return to their pre-run state.
func Run(opts Options) (*Result, error) {
	logger := logging.GetLogger("commands.sync")
	defer logging.LogOperationStart(logger, "sync")()

	ch, err := chain.Detect(opts.FS, opts.WorkingDir, opts.HomeDir)
	if err != nil {
		return nil, err
	}
	if len(ch.Effective()) == 0 {
		return nil, errors.Newf(errors.ErrChainNotFound,
			"no canonical tree found at or above %s", opts.WorkingDir)
	}

	set := opts.Clients
	if len(set) == 0 {
		set = clients.Detect(opts.FS, opts.HomeDir)
		if len(set) == 0 {
			logger.Info().Msg("No clients detected, using default set")
			set = clients.DefaultFallback
		}
	}

	mappings, err := buildMappings(opts, ch, set)
	if err != nil {
		return nil, err
	}

	plan := linkplan.Build(opts.FS, mappings)
	result := &Result{Chain: ch, Clients: set, Plan: plan}

	// Conflicts without --force abort inside Apply before any
	// mutation; no backup session is needed for that path or for a
	// dry run.
	if opts.DryRun || (len(plan.Conflicts()) > 0 && !opts.Force) {
		applied, err := linkplan.Apply(opts.FS, plan, linkplan.ApplyOptions{
			DryRun: opts.DryRun,
			Force:  opts.Force,
		})
		result.Apply = applied
		return result, err
	}

	baseDir := opts.BackupBaseDir
	if baseDir == "" {
		baseDir = backup.DefaultBaseDir()
	}
	backupRoot := ch.Effective()[0]
	if opts.Scope == clients.ScopeGlobal {
		backupRoot = ch.Global
	}
	session, err := backup.Open(opts.FS, baseDir, backupRoot, "sync", time.Now())
	if err != nil {
		return nil, err
	}
	result.BackupDir = session.Dir()

	for _, task := range plan.Changes() {
		if err := session.Capture(task.Target); err != nil {
			return nil, err
		}
	}

	applied, err := linkplan.Apply(opts.FS, plan, linkplan.ApplyOptions{Force: opts.Force})
	result.Apply = applied
	if err != nil {
		logger.Error().Err(err).Msg("Apply failed, rolling back")
		if rbErr := session.Rollback(); rbErr != nil {
			logger.Error().Err(rbErr).Msg("Rollback incomplete")
		}
		return result, err
	}

	if err := session.Finalize(); err != nil {
		logger.Warn().Err(err).Msg("Could not finalize backup session")
	}
	if opts.BackupRetention > 0 {
		if err := backup.Prune(opts.FS, baseDir, opts.BackupRetention); err != nil {
			logger.Warn().Err(err).Msg("Backup pruning failed")
		}
	}

	logger.Info().
		Int("created", applied.Created).
		Int("updated", applied.Updated).
		Int("skipped", applied.Skipped).
		Msg("Sync complete")
	return result, nil
}

// buildMappings picks the resolution mode for the scope: global syncs
// resolve the global root alone, with no chain walk; project syncs
// resolve the full chain.
func buildMappings(opts Options, ch *chain.Chain, set []clients.Client) ([]types.Mapping, error) {
	if opts.Scope == clients.ScopeGlobal {
		if ch.Global == "" {
			return nil, errors.Newf(errors.ErrChainNotFound,
				"no global canonical tree under %s", opts.HomeDir)
		}
		return mapping.BuildSingle(opts.FS, ch.Global, mapping.Options{
			Scope:   clients.ScopeGlobal,
			HomeDir: opts.HomeDir,
			Clients: set,
		}), nil
	}

	// Commands may run from anywhere inside the project; targets
	// anchor to the nearest root's parent, not the invocation dir.
	projectDir := opts.WorkingDir
	if ch.Current != "" {
		projectDir = paths.ProjectDir(ch.Current)
	}
	return mapping.Build(opts.FS, ch, mapping.Options{
		Scope:      opts.Scope,
		ProjectDir: projectDir,
		HomeDir:    opts.HomeDir,
		Clients:    set,
	})
}
