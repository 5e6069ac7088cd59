// Package resource answers which assets a canonical root actually
// holds, and enumerates them for read-only listing.
package resource

import (
	"path/filepath"
	"sort"

	"github.com/caelinsutch/agentlink/pkg/paths"
	"github.com/caelinsutch/agentlink/pkg/types"
)

// NodeSource returns the effective source path a single root offers
// for a resource, and whether the root has the resource at all. For
// the instructions file the priority filename wins over the default
// at the same root.
func NodeSource(fsys types.FS, root string, kind types.ResourceKind) (string, bool) {
	if kind == types.ResourceInstructions {
		for _, candidate := range paths.InstructionsCandidates(root) {
			if isFile(fsys, candidate) {
				return candidate, true
			}
		}
		return "", false
	}

	dir := paths.ResourceDir(root, kind)
	info, err := fsys.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", false
	}
	return dir, true
}

// InstructionsNamed is like NodeSource for the instructions resource
// but considers only one specific filename.
func InstructionsNamed(fsys types.FS, root, name string) (string, bool) {
	path := filepath.Join(root, name)
	if isFile(fsys, path) {
		return path, true
	}
	return "", false
}

// Discover enumerates named items across roots given in precedence
// order. Items shadowed by a nearer root's same-named entry are
// dropped, matching inherit resolution for listing purposes.
func Discover(fsys types.FS, roots []string) []types.DiscoveredItem {
	var items []types.DiscoveredItem
	seen := make(map[string]bool)

	for _, root := range roots {
		for _, kind := range []types.ResourceKind{types.ResourceCommands, types.ResourceHooks, types.ResourceSkills} {
			dir, ok := NodeSource(fsys, root, kind)
			if !ok {
				continue
			}
			entries, err := fsys.ReadDir(dir)
			if err != nil {
				continue
			}
			for _, entry := range entries {
				if kind == types.ResourceCommands && entry.IsDir() {
					continue
				}
				if kind != types.ResourceCommands && !entry.IsDir() {
					continue
				}
				key := kind.String() + "/" + entry.Name()
				if seen[key] {
					continue
				}
				seen[key] = true
				items = append(items, types.DiscoveredItem{
					Name: entry.Name(),
					Path: filepath.Join(dir, entry.Name()),
					Root: root,
					Kind: kind,
				})
			}
		}
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Kind != items[j].Kind {
			return items[i].Kind < items[j].Kind
		}
		return items[i].Name < items[j].Name
	})
	return items
}

func isFile(fsys types.FS, path string) bool {
	info, err := fsys.Stat(path)
	return err == nil && !info.IsDir()
}
