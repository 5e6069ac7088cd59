// Package merge resolves one effective source per resource kind from
// an inheritance chain. When more than one node contributes, the
// result is materialized under the current root's transient merged/
// subtree and rebuilt on every resolution that needs it: directory
// resources replace their whole merged subdir, instruction files
// replace just their own file.
package merge

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/caelinsutch/agentlink/pkg/chain"
	"github.com/caelinsutch/agentlink/pkg/config"
	"github.com/caelinsutch/agentlink/pkg/errors"
	"github.com/caelinsutch/agentlink/pkg/logging"
	"github.com/caelinsutch/agentlink/pkg/paths"
	"github.com/caelinsutch/agentlink/pkg/resource"
	"github.com/caelinsutch/agentlink/pkg/types"
)

// Resolved is one effective source. A nil *Resolved means the
// resource has no mapping at all, which is not an error.
type Resolved struct {
	Source string
	Kind   types.MappingKind
	// Synthesized is true when the source lives under merged/ rather
	// than pointing at an original tree.
	Synthesized bool
}

// Engine resolves resources against one detected chain.
type Engine struct {
	fs     types.FS
	chain  *chain.Chain
	cfg    *config.NodeConfig
	logger zerolog.Logger
}

// NewEngine builds an engine for a chain, loading the current node's
// config. A chain without a current node carries the empty config, so
// every resource resolves with inherit semantics.
func NewEngine(fsys types.FS, ch *chain.Chain) *Engine {
	cfg := &config.NodeConfig{}
	if ch.Current != "" {
		cfg = config.Load(fsys, ch.Current)
	}
	return &Engine{
		fs:     fsys,
		chain:  ch,
		cfg:    cfg,
		logger: logging.GetLogger("merge.engine"),
	}
}

// Resolve produces the effective source for a resource kind, or nil
// when nothing in the chain provides it.
func (e *Engine) Resolve(kind types.ResourceKind) (*Resolved, error) {
	if kind == types.ResourceInstructions {
		return e.resolveInstructions(instructionsNames(), "")
	}
	return e.resolveDir(kind)
}

// ResolveInstructionsNamed resolves the instructions resource while
// considering only one candidate filename. The mapping layer uses it
// to produce the lower-priority projection for clients that do not
// take the priority filename.
func (e *Engine) ResolveInstructionsNamed(name string) (*Resolved, error) {
	return e.resolveInstructions([]string{name}, name)
}

// ResolveSingle resolves a resource against one root with no chain:
// either the root has it or there is no mapping.
func ResolveSingle(fsys types.FS, root string, kind types.ResourceKind) *Resolved {
	src, ok := resource.NodeSource(fsys, root, kind)
	if !ok {
		return nil
	}
	return &Resolved{Source: src, Kind: mappingKind(kind)}
}

func (e *Engine) resolveDir(kind types.ResourceKind) (*Resolved, error) {
	behavior := e.cfg.Behavior(kind.String())

	switch behavior {
	case config.BehaviorOverride:
		return e.currentOnly(kind), nil

	case config.BehaviorInherit:
		for _, root := range e.chain.Effective() {
			if src, ok := resource.NodeSource(e.fs, root, kind); ok {
				return &Resolved{Source: src, Kind: types.MappingDir}, nil
			}
		}
		return nil, nil

	case config.BehaviorExtend:
		return e.extendDir(kind)

	case config.BehaviorCompose:
		return e.composeDir(kind)
	}
	return nil, nil
}

func (e *Engine) currentOnly(kind types.ResourceKind) *Resolved {
	if e.chain.Current == "" {
		return nil
	}
	src, ok := resource.NodeSource(e.fs, e.chain.Current, kind)
	if !ok {
		return nil
	}
	return &Resolved{Source: src, Kind: mappingKind(kind)}
}

func (e *Engine) extendDir(kind types.ResourceKind) (*Resolved, error) {
	var contributors []string
	for _, root := range e.chain.Effective() {
		if src, ok := resource.NodeSource(e.fs, root, kind); ok {
			contributors = append(contributors, src)
		}
	}

	switch len(contributors) {
	case 0:
		return nil, nil
	case 1:
		// A single contributor stays the live source; no copy is made
		// so edits keep flowing through without a resync.
		return &Resolved{Source: contributors[0], Kind: types.MappingDir}, nil
	}

	mergedDir, err := e.freshMergedDir(kind.String())
	if err != nil {
		return nil, err
	}

	// Farthest first, so nearer nodes overwrite colliding names.
	for i := len(contributors) - 1; i >= 0; i-- {
		if err := copyTree(e.fs, contributors[i], mergedDir, kind.String(), e.cfg.IsExcluded); err != nil {
			return nil, err
		}
	}

	e.logger.Debug().
		Str("resource", kind.String()).
		Int("contributors", len(contributors)).
		Str("merged", mergedDir).
		Msg("Materialized extend merge")

	return &Resolved{Source: mergedDir, Kind: types.MappingDir, Synthesized: true}, nil
}

func (e *Engine) composeDir(kind types.ResourceKind) (*Resolved, error) {
	include := e.cfg.IncludeList(kind.String())

	// Empty or absent include list: the current node's own resource,
	// unmerged, or nothing.
	if len(include) == 0 {
		return e.currentOnly(kind), nil
	}
	if e.chain.Current == "" {
		return nil, nil
	}

	mergedDir, err := e.freshMergedDir(kind.String())
	if err != nil {
		return nil, err
	}

	ancestors := e.ancestorRoots()
	collected := false
	for _, item := range include {
		// Directory items may carry a trailing separator marker.
		name := strings.TrimSuffix(strings.TrimSuffix(item, "/"), "\\")
		if name == "" {
			continue
		}
		for _, root := range ancestors {
			src := filepath.Join(paths.ResourceDir(root, kind), name)
			if _, err := e.fs.Stat(src); err != nil {
				continue
			}
			rel := kind.String() + "/" + name
			if err := copyEntry(e.fs, src, filepath.Join(mergedDir, name), rel, e.cfg.IsExcluded); err != nil {
				return nil, err
			}
			collected = true
			break
		}
	}

	// The current node's full resource goes on top: it wins name
	// collisions and contributes items outside the include list.
	currentDir, hasCurrent := resource.NodeSource(e.fs, e.chain.Current, kind)
	if hasCurrent {
		if err := copyTree(e.fs, currentDir, mergedDir, kind.String(), e.cfg.IsExcluded); err != nil {
			return nil, err
		}
	}

	if !collected && !hasCurrent {
		if err := e.fs.RemoveAll(mergedDir); err != nil {
			return nil, errors.Wrapf(err, errors.ErrMergeClean, "removing %s", mergedDir)
		}
		return nil, nil
	}

	return &Resolved{Source: mergedDir, Kind: types.MappingDir, Synthesized: true}, nil
}

func (e *Engine) resolveInstructions(names []string, outName string) (*Resolved, error) {
	behavior := e.cfg.Behavior(types.ResourceInstructions.String())

	nodeFile := func(root string) (string, bool) {
		for _, name := range names {
			if src, ok := resource.InstructionsNamed(e.fs, root, name); ok {
				return src, true
			}
		}
		return "", false
	}

	switch behavior {
	case config.BehaviorOverride, config.BehaviorCompose:
		// Include lists name directory items, which a single document
		// has none of, so compose degenerates to current-or-nothing.
		if e.chain.Current == "" {
			return nil, nil
		}
		if src, ok := nodeFile(e.chain.Current); ok {
			return &Resolved{Source: src, Kind: types.MappingFile}, nil
		}
		return nil, nil

	case config.BehaviorInherit:
		for _, root := range e.chain.Effective() {
			if src, ok := nodeFile(root); ok {
				return &Resolved{Source: src, Kind: types.MappingFile}, nil
			}
		}
		return nil, nil
	}

	// Extend: concatenate every contributing node, farthest first.
	var contributors []string
	for _, root := range e.chain.Effective() {
		if src, ok := nodeFile(root); ok {
			contributors = append(contributors, src)
		}
	}

	switch len(contributors) {
	case 0:
		return nil, nil
	case 1:
		return &Resolved{Source: contributors[0], Kind: types.MappingFile}, nil
	}

	contents := make([]string, 0, len(contributors))
	for i := len(contributors) - 1; i >= 0; i-- {
		data, err := e.fs.ReadFile(contributors[i])
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrMergeCopy, "reading %s", contributors[i])
		}
		contents = append(contents, string(data))
	}

	body := MergeMarkdownChain(contents)
	if body == "" {
		return nil, nil
	}

	if outName == "" {
		// The nearest contributor decides the synthesized filename.
		outName = filepath.Base(contributors[0])
	}
	// Both instruction resolutions of one build (the priority file
	// and the default-named one) share this directory, so only the
	// file being regenerated is replaced, never the whole subtree.
	mergedRoot := filepath.Join(paths.MergedRoot(e.chain.Current), types.ResourceInstructions.String())
	if err := e.fs.MkdirAll(mergedRoot, 0755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrDirCreate, "creating %s", mergedRoot)
	}
	mergedFile := filepath.Join(mergedRoot, outName)
	if err := e.fs.Remove(mergedFile); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, errors.ErrMergeClean, "removing %s", mergedFile)
	}
	if err := e.fs.WriteFile(mergedFile, []byte(body), 0644); err != nil {
		return nil, errors.Wrapf(err, errors.ErrMergeCopy, "writing %s", mergedFile)
	}

	e.logger.Debug().
		Int("contributors", len(contributors)).
		Str("merged", mergedFile).
		Msg("Materialized instructions merge")

	return &Resolved{Source: mergedFile, Kind: types.MappingFile, Synthesized: true}, nil
}

// freshMergedDir deletes and recreates the merge output for one
// resource. The merged/ subtree is never patched incrementally.
func (e *Engine) freshMergedDir(resourceName string) (string, error) {
	mergedDir := paths.MergedPath(e.chain.Current, resourceName)
	if err := e.fs.RemoveAll(mergedDir); err != nil {
		return "", errors.Wrapf(err, errors.ErrMergeClean, "removing %s", mergedDir)
	}
	if err := e.fs.MkdirAll(mergedDir, 0755); err != nil {
		return "", errors.Wrapf(err, errors.ErrDirCreate, "creating %s", mergedDir)
	}
	return mergedDir, nil
}

func (e *Engine) ancestorRoots() []string {
	var roots []string
	roots = append(roots, e.chain.Ancestors...)
	if e.chain.Global != "" {
		roots = append(roots, e.chain.Global)
	}
	return roots
}

func mappingKind(kind types.ResourceKind) types.MappingKind {
	if kind.IsDir() {
		return types.MappingDir
	}
	return types.MappingFile
}

func instructionsNames() []string {
	return []string{paths.InstructionsPriorityName, paths.InstructionsDefaultName}
}
