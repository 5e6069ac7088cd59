// Package linkplan turns mappings into an idempotent, conflict-aware
// set of symlink operations and applies them.
package linkplan

import (
	"os"
	"path/filepath"

	"github.com/caelinsutch/agentlink/pkg/logging"
	"github.com/caelinsutch/agentlink/pkg/types"
)

// TaskType classifies one planned operation.
type TaskType int

const (
	// TaskEnsureSource flags a mapping whose source does not exist on
	// disk. Always reported, never silently dropped.
	TaskEnsureSource TaskType = iota

	// TaskLink creates or replaces a symlink.
	TaskLink

	// TaskNoop marks a target already linked correctly.
	TaskNoop

	// TaskConflict marks a target that exists and is not the expected
	// symlink. Never overwritten automatically.
	TaskConflict
)

// String returns a short name for display and logging.
func (t TaskType) String() string {
	switch t {
	case TaskEnsureSource:
		return "ensure-source"
	case TaskLink:
		return "link"
	case TaskNoop:
		return "noop"
	case TaskConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Task is one planned operation against a single target.
type Task struct {
	Type     TaskType
	Resource string
	Source   string
	Target   string
	Kind     types.MappingKind
	// ReplaceSymlink is set on link tasks whose target is an existing
	// symlink pointing elsewhere.
	ReplaceSymlink bool
}

// Plan is the full set of tasks for one projection.
type Plan struct {
	Tasks []Task
}

// Changes returns the tasks requiring filesystem mutation.
func (p *Plan) Changes() []Task {
	var changes []Task
	for _, task := range p.Tasks {
		if task.Type == TaskLink {
			changes = append(changes, task)
		}
	}
	return changes
}

// Conflicts returns the tasks blocked by pre-existing targets.
func (p *Plan) Conflicts() []Task {
	var conflicts []Task
	for _, task := range p.Tasks {
		if task.Type == TaskConflict {
			conflicts = append(conflicts, task)
		}
	}
	return conflicts
}

// Build inspects every mapping target and classifies the work needed.
// Building never mutates the filesystem.
func Build(fsys types.FS, mappings []types.Mapping) *Plan {
	logger := logging.GetLogger("linkplan.build")
	plan := &Plan{}

	for _, m := range mappings {
		sourceMissing := false
		if _, err := fsys.Stat(m.Source); err != nil {
			sourceMissing = true
		}
		for _, target := range m.Targets {
			if sourceMissing {
				plan.Tasks = append(plan.Tasks, Task{
					Type:     TaskEnsureSource,
					Resource: m.Name,
					Source:   m.Source,
					Target:   target,
					Kind:     m.Kind,
				})
				continue
			}
			plan.Tasks = append(plan.Tasks, classify(fsys, m, target))
		}
	}

	logger.Debug().
		Int("tasks", len(plan.Tasks)).
		Int("changes", len(plan.Changes())).
		Int("conflicts", len(plan.Conflicts())).
		Msg("Plan built")
	return plan
}

func classify(fsys types.FS, m types.Mapping, target string) Task {
	task := Task{
		Resource: m.Name,
		Source:   m.Source,
		Target:   target,
		Kind:     m.Kind,
	}

	// The canonical file can be its own destination (a client that
	// reads AGENTS.md at the project root). Nothing to do then.
	if filepath.Clean(target) == filepath.Clean(m.Source) {
		task.Type = TaskNoop
		return task
	}

	info, err := fsys.Lstat(target)
	if err != nil {
		task.Type = TaskLink
		return task
	}

	if info.Mode()&os.ModeSymlink == 0 {
		// A real file or directory is a conflict regardless of
		// whether its content happens to match the source.
		task.Type = TaskConflict
		return task
	}

	dest, err := fsys.Readlink(target)
	if err != nil {
		task.Type = TaskLink
		task.ReplaceSymlink = true
		return task
	}
	if !filepath.IsAbs(dest) {
		dest = filepath.Join(filepath.Dir(target), dest)
	}
	if filepath.Clean(dest) == filepath.Clean(m.Source) {
		task.Type = TaskNoop
		return task
	}

	task.Type = TaskLink
	task.ReplaceSymlink = true
	return task
}
