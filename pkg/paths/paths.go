package paths

import (
	"os"
	"path/filepath"

	"github.com/caelinsutch/agentlink/pkg/types"
)

// Canonical tree layout names. A canonical root is a hidden
// MarkerDirName directory at a project or home directory.
const (
	// MarkerDirName is the hidden directory that marks a canonical tree.
	MarkerDirName = ".agentlink"

	// ConfigFileName is the per-root structured config file.
	ConfigFileName = "config.yaml"

	// MergedDirName is the transient merge-output subtree, owned
	// entirely by the merge engine and removable at any time.
	MergedDirName = "merged"

	// InstructionsPriorityName takes precedence over
	// InstructionsDefaultName when both exist at the same root.
	InstructionsPriorityName = "CLAUDE.md"
	InstructionsDefaultName  = "AGENTS.md"
)

// HomeDir resolves the user's home directory.
func HomeDir() (string, error) {
	return os.UserHomeDir()
}

// GlobalRoot returns the path of the home-scoped canonical root.
func GlobalRoot(homeDir string) string {
	return filepath.Join(homeDir, MarkerDirName)
}

// MarkerPath returns the canonical-root path for a directory.
func MarkerPath(dir string) string {
	return filepath.Join(dir, MarkerDirName)
}

// ProjectDir returns the directory a canonical root projects into,
// which is the root's parent.
func ProjectDir(root string) string {
	return filepath.Dir(root)
}

// ConfigPath returns the config file path for a canonical root.
func ConfigPath(root string) string {
	return filepath.Join(root, ConfigFileName)
}

// ResourceDir returns the directory holding a directory-shaped
// resource inside a canonical root. It must not be called for the
// instructions resource, which is a file with two candidate names.
func ResourceDir(root string, kind types.ResourceKind) string {
	return filepath.Join(root, kind.String())
}

// InstructionsCandidates returns the instruction-file paths for a
// root, priority name first.
func InstructionsCandidates(root string) []string {
	return []string{
		filepath.Join(root, InstructionsPriorityName),
		filepath.Join(root, InstructionsDefaultName),
	}
}

// MergedPath returns the merge-output location for a resource under
// the current root.
func MergedPath(root string, resource string) string {
	return filepath.Join(root, MergedDirName, resource)
}

// MergedRoot returns the root of the transient merge-output subtree.
func MergedRoot(root string) string {
	return filepath.Join(root, MergedDirName)
}
