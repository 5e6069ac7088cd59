package linkplan

import (
	"fmt"

	"github.com/caelinsutch/agentlink/pkg/logging"
	"github.com/caelinsutch/agentlink/pkg/types"
)

// RepairResult aggregates one unattended repair run.
type RepairResult struct {
	Created int
	Updated int
	Skipped int
	Errors  []string
}

// Repair applies a plan for unattended contexts: conflicts are
// skipped instead of blocking, and per-task filesystem errors are
// recorded without aborting the remaining tasks.
func Repair(fsys types.FS, plan *Plan) *RepairResult {
	logger := logging.GetLogger("linkplan.repair")
	result := &RepairResult{}

	for _, task := range plan.Tasks {
		switch task.Type {
		case TaskNoop, TaskConflict, TaskEnsureSource:
			result.Skipped++
			continue
		case TaskLink:
		default:
			continue
		}

		outcome, err := applyLink(fsys, task)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", task.Target, err))
			continue
		}
		switch outcome {
		case linkSkipped:
			result.Skipped++
		case linkCreated:
			result.Created++
		case linkUpdated:
			result.Updated++
		}
	}

	logger.Info().
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("skipped", result.Skipped).
		Int("errors", len(result.Errors)).
		Msg("Repair finished")
	return result
}
