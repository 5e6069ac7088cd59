package types

// ResourceKind identifies one kind of canonical-tree asset.
type ResourceKind int

const (
	// ResourceInstructions is the single instructions file
	// (CLAUDE.md or AGENTS.md) at the root of a canonical tree.
	ResourceInstructions ResourceKind = iota

	// ResourceCommands is the flat directory of slash-command files.
	ResourceCommands

	// ResourceHooks is the directory of named hook subdirectories.
	ResourceHooks

	// ResourceSkills is the directory of named skill subdirectories.
	ResourceSkills
)

// String returns the resource name used in config files and merged
// directory paths.
func (k ResourceKind) String() string {
	switch k {
	case ResourceInstructions:
		return "instructions"
	case ResourceCommands:
		return "commands"
	case ResourceHooks:
		return "hooks"
	case ResourceSkills:
		return "skills"
	default:
		return "unknown"
	}
}

// IsDir reports whether the resource resolves to a directory rather
// than a single file.
func (k ResourceKind) IsDir() bool {
	return k != ResourceInstructions
}

// AllResourceKinds returns every resource kind in resolution order.
func AllResourceKinds() []ResourceKind {
	return []ResourceKind{
		ResourceInstructions,
		ResourceCommands,
		ResourceHooks,
		ResourceSkills,
	}
}

// ParseResourceKind maps a config-file resource name to its kind.
func ParseResourceKind(name string) (ResourceKind, bool) {
	switch name {
	case "instructions":
		return ResourceInstructions, true
	case "commands":
		return ResourceCommands, true
	case "hooks":
		return ResourceHooks, true
	case "skills":
		return ResourceSkills, true
	default:
		return 0, false
	}
}
