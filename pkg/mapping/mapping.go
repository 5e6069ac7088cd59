// Package mapping fans resolved sources out to the destination paths
// of every requested client tool.
package mapping

import (
	"path/filepath"

	"github.com/caelinsutch/agentlink/pkg/chain"
	"github.com/caelinsutch/agentlink/pkg/clients"
	"github.com/caelinsutch/agentlink/pkg/logging"
	"github.com/caelinsutch/agentlink/pkg/merge"
	"github.com/caelinsutch/agentlink/pkg/paths"
	"github.com/caelinsutch/agentlink/pkg/types"
)

// Options configures one mapping build.
type Options struct {
	// Scope selects project or global target layouts.
	Scope clients.Scope
	// ProjectDir anchors project-scoped targets. Ignored for global
	// scope.
	ProjectDir string
	// HomeDir anchors global-scoped targets.
	HomeDir string
	// Clients is the set of tools to project into.
	Clients []clients.Client
}

// Build resolves every resource kind against the chain and produces
// mappings for the requested clients. Resources nothing provides, and
// clients with no target for a kind, are skipped silently.
func Build(fsys types.FS, ch *chain.Chain, opts Options) ([]types.Mapping, error) {
	logger := logging.GetLogger("mapping.build")
	engine := merge.NewEngine(fsys, ch)

	var mappings []types.Mapping
	for _, kind := range types.AllResourceKinds() {
		resolved, err := engine.Resolve(kind)
		if err != nil {
			return nil, err
		}
		if resolved == nil {
			continue
		}

		if kind == types.ResourceInstructions {
			instr, err := buildInstructions(engine, resolved, opts)
			if err != nil {
				return nil, err
			}
			mappings = append(mappings, instr...)
			continue
		}

		if m, ok := fanOut(kind, resolved, opts.Clients, opts); ok {
			mappings = append(mappings, m)
		}
	}

	logger.Debug().Int("mappings", len(mappings)).Msg("Mappings built")
	return mappings, nil
}

// BuildSingle is the non-chained variant used for the global scope:
// each resource either exists at the root or has no mapping.
func BuildSingle(fsys types.FS, root string, opts Options) []types.Mapping {
	var mappings []types.Mapping
	for _, kind := range types.AllResourceKinds() {
		resolved := merge.ResolveSingle(fsys, root, kind)
		if resolved == nil {
			continue
		}

		if kind == types.ResourceInstructions {
			mappings = append(mappings, singleInstructions(fsys, root, resolved, opts)...)
			continue
		}

		if m, ok := fanOut(kind, resolved, opts.Clients, opts); ok {
			mappings = append(mappings, m)
		}
	}
	return mappings
}

// buildInstructions applies the special rule for the single-document
// resource: when the resolved source carries the priority filename,
// only the priority-consuming client receives it; everyone else gets
// the lower-priority resolution, or nothing if that name never
// resolved.
func buildInstructions(engine *merge.Engine, resolved *merge.Resolved, opts Options) ([]types.Mapping, error) {
	if filepath.Base(resolved.Source) != paths.InstructionsPriorityName {
		m, ok := fanOut(types.ResourceInstructions, resolved, opts.Clients, opts)
		if !ok {
			return nil, nil
		}
		return []types.Mapping{m}, nil
	}

	var priorityClients, restClients []clients.Client
	for _, c := range opts.Clients {
		if clients.WantsPriorityInstructions(c) {
			priorityClients = append(priorityClients, c)
		} else {
			restClients = append(restClients, c)
		}
	}

	var mappings []types.Mapping
	if m, ok := fanOut(types.ResourceInstructions, resolved, priorityClients, opts); ok {
		mappings = append(mappings, m)
	}

	if len(restClients) > 0 {
		lower, err := engine.ResolveInstructionsNamed(paths.InstructionsDefaultName)
		if err != nil {
			return nil, err
		}
		if lower != nil {
			if m, ok := fanOut(types.ResourceInstructions, lower, restClients, opts); ok {
				mappings = append(mappings, m)
			}
		}
	}
	return mappings, nil
}

func singleInstructions(fsys types.FS, root string, resolved *merge.Resolved, opts Options) []types.Mapping {
	if filepath.Base(resolved.Source) != paths.InstructionsPriorityName {
		if m, ok := fanOut(types.ResourceInstructions, resolved, opts.Clients, opts); ok {
			return []types.Mapping{m}
		}
		return nil
	}

	var priorityClients, restClients []clients.Client
	for _, c := range opts.Clients {
		if clients.WantsPriorityInstructions(c) {
			priorityClients = append(priorityClients, c)
		} else {
			restClients = append(restClients, c)
		}
	}

	var mappings []types.Mapping
	if m, ok := fanOut(types.ResourceInstructions, resolved, priorityClients, opts); ok {
		mappings = append(mappings, m)
	}
	if len(restClients) > 0 {
		lower := &merge.Resolved{Source: filepath.Join(root, paths.InstructionsDefaultName), Kind: types.MappingFile}
		if _, err := fsys.Stat(lower.Source); err == nil {
			if m, ok := fanOut(types.ResourceInstructions, lower, restClients, opts); ok {
				mappings = append(mappings, m)
			}
		}
	}
	return mappings
}

// fanOut produces one mapping for a resolved source, deduplicating
// identical targets contributed by different clients.
func fanOut(kind types.ResourceKind, resolved *merge.Resolved, set []clients.Client, opts Options) (types.Mapping, bool) {
	var targets []string
	seen := make(map[string]bool)
	for _, c := range set {
		target, ok := clients.TargetPath(c, kind, opts.Scope, opts.ProjectDir, opts.HomeDir)
		if !ok || seen[target] {
			continue
		}
		seen[target] = true
		targets = append(targets, target)
	}
	if len(targets) == 0 {
		return types.Mapping{}, false
	}
	return types.Mapping{
		Name:    kind.String(),
		Source:  resolved.Source,
		Targets: targets,
		Kind:    resolved.Kind,
	}, true
}
