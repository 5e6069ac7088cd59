// Package repair restores broken or missing links without operator
// interaction. It never blocks on conflicts and never errors on a
// missing tree, making it safe to run from login scripts or cron.
package repair

import (
	"fmt"

	"github.com/caelinsutch/agentlink/pkg/chain"
	"github.com/caelinsutch/agentlink/pkg/clients"
	"github.com/caelinsutch/agentlink/pkg/linkplan"
	"github.com/caelinsutch/agentlink/pkg/logging"
	"github.com/caelinsutch/agentlink/pkg/mapping"
	"github.com/caelinsutch/agentlink/pkg/paths"
	"github.com/caelinsutch/agentlink/pkg/types"
)

type Options struct {
	FS         types.FS
	WorkingDir string
	HomeDir    string
	// Clients limits repair to the named tools. Empty means
	// auto-detect with a static fallback.
	Clients []clients.Client
	Scope   clients.Scope
}

type Result struct {
	Chain  *chain.Chain
	Repair *linkplan.RepairResult
	// Message is set when repair had nothing to do.
	Message string
}

// Run rebuilds the plan and applies it leniently. With no canonical
// tree present it reports that and performs zero mutation.
func Run(opts Options) (*Result, error) {
	logger := logging.GetLogger("commands.repair")
	defer logging.LogOperationStart(logger, "repair")()

	ch, err := chain.Detect(opts.FS, opts.WorkingDir, opts.HomeDir)
	if err != nil {
		return nil, err
	}
	if len(ch.Effective()) == 0 {
		logger.Info().Str("dir", opts.WorkingDir).Msg("No canonical tree, nothing to repair")
		return &Result{
			Chain:   ch,
			Repair:  &linkplan.RepairResult{},
			Message: fmt.Sprintf("No canonical tree found at or above %s; nothing to repair.", opts.WorkingDir),
		}, nil
	}

	set := opts.Clients
	if len(set) == 0 {
		set = clients.Detect(opts.FS, opts.HomeDir)
		if len(set) == 0 {
			set = clients.DefaultFallback
		}
	}

	var mappings []types.Mapping
	if opts.Scope == clients.ScopeGlobal {
		if ch.Global == "" {
			logger.Info().Str("home", opts.HomeDir).Msg("No global tree, nothing to repair")
			return &Result{
				Chain:   ch,
				Repair:  &linkplan.RepairResult{},
				Message: fmt.Sprintf("No global canonical tree under %s; nothing to repair.", opts.HomeDir),
			}, nil
		}
		mappings = mapping.BuildSingle(opts.FS, ch.Global, mapping.Options{
			Scope:   clients.ScopeGlobal,
			HomeDir: opts.HomeDir,
			Clients: set,
		})
	} else {
		projectDir := opts.WorkingDir
		if ch.Current != "" {
			projectDir = paths.ProjectDir(ch.Current)
		}
		mappings, err = mapping.Build(opts.FS, ch, mapping.Options{
			Scope:      opts.Scope,
			ProjectDir: projectDir,
			HomeDir:    opts.HomeDir,
			Clients:    set,
		})
		if err != nil {
			return nil, err
		}
	}

	plan := linkplan.Build(opts.FS, mappings)
	repaired := linkplan.Repair(opts.FS, plan)
	logger.Info().
		Int("created", repaired.Created).
		Int("updated", repaired.Updated).
		Int("skipped", repaired.Skipped).
		Int("errors", len(repaired.Errors)).
		Msg("Repair complete")
	return &Result{Chain: ch, Repair: repaired}, nil
}
