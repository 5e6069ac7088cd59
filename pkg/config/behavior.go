package config

// ExtendBehavior controls how a resource is resolved against the
// inheritance chain.
type ExtendBehavior int

const (
	// BehaviorInherit walks the chain nearest-first and takes the
	// first node that has the resource. This is the default.
	BehaviorInherit ExtendBehavior = iota

	// BehaviorOverride considers only the current node; ancestors are
	// never consulted.
	BehaviorOverride

	// BehaviorExtend merges every contributing node, nearest node
	// winning on name collisions.
	BehaviorExtend

	// BehaviorCompose cherry-picks named items from ancestors per the
	// include list, then layers the current node on top.
	BehaviorCompose
)

// String returns the config-file name of the behavior.
func (b ExtendBehavior) String() string {
	switch b {
	case BehaviorInherit:
		return "inherit"
	case BehaviorOverride:
		return "override"
	case BehaviorExtend:
		return "extend"
	case BehaviorCompose:
		return "compose"
	default:
		return "inherit"
	}
}

// ParseBehavior maps a config-file value to its behavior. Unknown
// values are rejected so typos fall back to the inherit default at
// the call site.
func ParseBehavior(s string) (ExtendBehavior, bool) {
	switch s {
	case "inherit":
		return BehaviorInherit, true
	case "override":
		return BehaviorOverride, true
	case "extend":
		return BehaviorExtend, true
	case "compose":
		return BehaviorCompose, true
	default:
		return BehaviorInherit, false
	}
}
