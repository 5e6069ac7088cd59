package linkplan

import (
	"fmt"
	"path/filepath"

	"github.com/caelinsutch/agentlink/pkg/errors"
	"github.com/caelinsutch/agentlink/pkg/logging"
	"github.com/caelinsutch/agentlink/pkg/types"
)

// ApplyOptions controls one apply run.
type ApplyOptions struct {
	// DryRun computes the same counts but performs no mutation.
	DryRun bool
	// Force proceeds despite conflicts; the conflicting targets are
	// left untouched and only non-conflicting changes are applied.
	Force bool
}

// ApplyResult aggregates one apply run.
type ApplyResult struct {
	Created   int
	Updated   int
	Skipped   int
	Conflicts int
}

// Apply executes a plan's link tasks. It is idempotent: re-running
// against correctly linked targets performs no mutation. Without
// Force, a plan containing conflicts aborts before any mutation so
// the operator sees them first.
func Apply(fsys types.FS, plan *Plan, opts ApplyOptions) (*ApplyResult, error) {
	logger := logging.GetLogger("linkplan.apply")
	result := &ApplyResult{Conflicts: len(plan.Conflicts())}

	if !opts.DryRun && result.Conflicts > 0 && !opts.Force {
		for _, task := range plan.Conflicts() {
			logger.Warn().Str("target", task.Target).Str("resource", task.Resource).Msg("Target conflicts")
		}
		return result, errors.Newf(errors.ErrTargetConflict,
			"%d target(s) already exist and are not agentlink symlinks; resolve them or re-run with --force",
			result.Conflicts)
	}

	for _, task := range plan.Tasks {
		switch task.Type {
		case TaskNoop, TaskConflict, TaskEnsureSource:
			if task.Type == TaskEnsureSource {
				logger.Warn().
					Str("resource", task.Resource).
					Str("source", task.Source).
					Msg("Source missing, target skipped")
			}
			result.Skipped++
			continue
		case TaskLink:
		default:
			continue
		}

		if opts.DryRun {
			if task.ReplaceSymlink {
				result.Updated++
			} else {
				result.Created++
			}
			continue
		}

		created, err := applyLink(fsys, task)
		if err != nil {
			return result, err
		}
		switch created {
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
		Int("conflicts", result.Conflicts).
		Bool("dry_run", opts.DryRun).
		Msg("Plan applied")
	return result, nil
}

type linkOutcome int

const (
	linkSkipped linkOutcome = iota
	linkCreated
	linkUpdated
)

// applyLink performs one link task: ensure the parent directory,
// drop any stale symlink, create the new one. A source that vanished
// since planning degrades to a skip rather than failing the run.
func applyLink(fsys types.FS, task Task) (linkOutcome, error) {
	if _, err := fsys.Stat(task.Source); err != nil {
		return linkSkipped, nil
	}

	parent := filepath.Dir(task.Target)
	if err := fsys.MkdirAll(parent, 0755); err != nil {
		return linkSkipped, errors.Wrapf(err, errors.ErrDirCreate, "creating %s", parent)
	}

	if task.ReplaceSymlink {
		if err := fsys.Remove(task.Target); err != nil {
			return linkSkipped, errors.Wrapf(err, errors.ErrSymlinkCreate,
				"removing stale symlink %s", task.Target)
		}
	}

	if err := fsys.Symlink(task.Source, task.Target); err != nil {
		return linkSkipped, errors.Wrapf(err, errors.ErrSymlinkCreate,
			"linking %s -> %s", task.Target, task.Source)
	}

	if task.ReplaceSymlink {
		return linkUpdated, nil
	}
	return linkCreated, nil
}

// Describe renders a task for plan previews.
func Describe(task Task) string {
	switch task.Type {
	case TaskEnsureSource:
		return fmt.Sprintf("missing source %s for %s", task.Source, task.Resource)
	case TaskConflict:
		return fmt.Sprintf("conflict at %s (existing %s)", task.Target, task.Kind)
	case TaskNoop:
		return fmt.Sprintf("ok %s", task.Target)
	default:
		verb := "link"
		if task.ReplaceSymlink {
			verb = "relink"
		}
		return fmt.Sprintf("%s %s -> %s", verb, task.Target, task.Source)
	}
}
