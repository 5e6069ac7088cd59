// Package status reports the detected chain and what a sync would do,
// without mutating anything.
package status

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
	Clients    []clients.Client
	Scope      clients.Scope
}

type Result struct {
	Chain   *chain.Chain
	Clients []clients.Client
	Plan    *linkplan.Plan
	// Lines is the preformatted report, ready for display.
	Lines []string
}

// Run detects the chain and builds a plan preview. A missing tree is
// not an error here; the report just says so.
func Run(opts Options) (*Result, error) {
	logger := logging.GetLogger("commands.status")
	defer logging.LogOperationStart(logger, "status")()

	ch, err := chain.Detect(opts.FS, opts.WorkingDir, opts.HomeDir)
	if err != nil {
		return nil, err
	}

	result := &Result{Chain: ch}
	if len(ch.Effective()) == 0 {
		result.Lines = []string{fmt.Sprintf("No canonical tree found at or above %s", opts.WorkingDir)}
		return result, nil
	}

	set := opts.Clients
	if len(set) == 0 {
		set = clients.Detect(opts.FS, opts.HomeDir)
		if len(set) == 0 {
			set = clients.DefaultFallback
		}
	}
	result.Clients = set

	var mappings []types.Mapping
	if opts.Scope == clients.ScopeGlobal {
		if ch.Global == "" {
			result.Lines = []string{fmt.Sprintf("No global canonical tree under %s", opts.HomeDir)}
			return result, nil
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
	result.Plan = linkplan.Build(opts.FS, mappings)

	result.Lines = append(result.Lines, ch.DisplayLines()...)
	result.Lines = append(result.Lines, "", clientLine(set), "")

	changes := result.Plan.Changes()
	conflicts := result.Plan.Conflicts()
	if len(changes) == 0 && len(conflicts) == 0 {
		result.Lines = append(result.Lines, "Everything is linked and up to date.")
		return result, nil
	}

	if len(changes) > 0 {
		result.Lines = append(result.Lines, fmt.Sprintf("Pending changes (%d):", len(changes)))
		for _, task := range changes {
			result.Lines = append(result.Lines, "  "+linkplan.Describe(task))
		}
	}
	if len(conflicts) > 0 {
		result.Lines = append(result.Lines, fmt.Sprintf("Conflicts (%d):", len(conflicts)))
		for _, task := range conflicts {
			result.Lines = append(result.Lines, "  "+linkplan.Describe(task))
		}
	}
	return result, nil
}

func clientLine(set []clients.Client) string {
	line := "Clients:"
	for _, c := range set {
		line += " " + string(c)
	}
	return line
}
