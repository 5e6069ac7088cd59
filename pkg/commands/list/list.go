// Package list enumerates the resources visible from the current
// chain, showing where each one comes from.
package list

import (
	"github.com/caelinsutch/agentlink/pkg/chain"
	"github.com/caelinsutch/agentlink/pkg/logging"
	"github.com/caelinsutch/agentlink/pkg/resource"
	"github.com/caelinsutch/agentlink/pkg/types"
)

type Options struct {
	FS         types.FS
	WorkingDir string
	HomeDir    string
}

type Result struct {
	Chain *chain.Chain
	Items []types.DiscoveredItem
}

// Run walks the chain nearest-first; items shadowed by a nearer node
// are not repeated.
func Run(opts Options) (*Result, error) {
	logger := logging.GetLogger("commands.list")
	defer logging.LogOperationStart(logger, "list")()

	ch, err := chain.Detect(opts.FS, opts.WorkingDir, opts.HomeDir)
	if err != nil {
		return nil, err
	}

	items := resource.Discover(opts.FS, ch.Effective())
	logger.Debug().Int("items", len(items)).Msg("Resources discovered")
	return &Result{Chain: ch, Items: items}, nil
}
