package types

// MappingKind tells the link layer whether a mapping's source is a
// file or a directory.
type MappingKind int

const (
	MappingFile MappingKind = iota
	MappingDir
)

// String returns a short name for display and logging.
func (k MappingKind) String() string {
	if k == MappingDir {
		return "dir"
	}
	return "file"
}

// Mapping is the resolved, single source for one resource kind and
// the destination paths it must be projected to.
type Mapping struct {
	// Name is the resource name this mapping was resolved for.
	Name string
	// Source is the absolute path of the effective source.
	Source string
	// Targets are the absolute per-client destination paths.
	Targets []string
	// Kind distinguishes file sources from directory sources.
	Kind MappingKind
}

// DiscoveredItem is one named asset found during read-only
// enumeration of a chain, used for listing rather than linking.
type DiscoveredItem struct {
	// Name is the item's filename (commands) or directory name
	// (hooks, skills).
	Name string
	// Path is the item's absolute path.
	Path string
	// Root is the canonical root that contributed the item.
	Root string
	// Kind is the resource kind the item belongs to.
	Kind ResourceKind
}
