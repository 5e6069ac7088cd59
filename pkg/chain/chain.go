// Package chain discovers the ordered inheritance chain of canonical
// roots for a starting directory. Detection is a pure function of the
// filesystem; no chain state is cached across calls.
package chain

import (
	"path/filepath"

	"github.com/caelinsutch/agentlink/pkg/logging"
	"github.com/caelinsutch/agentlink/pkg/paths"
	"github.com/caelinsutch/agentlink/pkg/types"
)

// Chain is the ordered inheritance chain for one starting directory.
// Current is the starting point's own root if present; Ancestors are
// strictly between Current and the home boundary, nearest first;
// Global is the home-directory root, tracked separately.
type Chain struct {
	Current   string
	Ancestors []string
	Global    string
}

// Detect walks upward from startDir recording every canonical root it
// passes. The walk stops at the filesystem root and never crosses
// above homeDir; a marker above homeDir is invisible. The home root
// itself is only ever reported as Global.
func Detect(fsys types.FS, startDir, homeDir string) (*Chain, error) {
	logger := logging.GetLogger("chain.detect")

	startDir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	homeDir, err = filepath.Abs(homeDir)
	if err != nil {
		return nil, err
	}

	ch := &Chain{}

	globalRoot := paths.GlobalRoot(homeDir)
	if isDir(fsys, globalRoot) {
		ch.Global = globalRoot
	}

	var found []string
	dir := startDir
	for {
		if dir == homeDir {
			break
		}
		if marker := paths.MarkerPath(dir); isDir(fsys, marker) {
			found = append(found, marker)
		}
		parent := filepath.Dir(dir)
		if parent == dir || parent == homeDir {
			break
		}
		dir = parent
	}

	if len(found) > 0 {
		ch.Current = found[0]
		ch.Ancestors = found[1:]
	}

	logger.Debug().
		Str("start", startDir).
		Str("current", ch.Current).
		Int("ancestors", len(ch.Ancestors)).
		Str("global", ch.Global).
		Msg("Chain detected")

	return ch, nil
}

// HasParent reports whether any root beyond Current exists.
func (c *Chain) HasParent() bool {
	return len(c.Ancestors) > 0 || c.Global != ""
}

// Effective returns the chain in canonical precedence order:
// current, then ancestors nearest first, then global, nulls omitted.
// Every downstream component resolves against this ordering.
func (c *Chain) Effective() []string {
	var roots []string
	if c.Current != "" {
		roots = append(roots, c.Current)
	}
	roots = append(roots, c.Ancestors...)
	if c.Global != "" {
		roots = append(roots, c.Global)
	}
	return roots
}

// DisplayLines renders the chain for human consumption: the current
// root, an "Inherits from:" header, and one indented line per parent,
// the global root labeled.
func (c *Chain) DisplayLines() []string {
	var lines []string
	if c.Current != "" {
		lines = append(lines, c.Current)
	}
	if !c.HasParent() {
		return lines
	}
	lines = append(lines, "Inherits from:")
	for _, ancestor := range c.Ancestors {
		lines = append(lines, "  "+ancestor)
	}
	if c.Global != "" {
		lines = append(lines, "  "+c.Global+" (global)")
	}
	return lines
}

func isDir(fsys types.FS, path string) bool {
	info, err := fsys.Stat(path)
	return err == nil && info.IsDir()
}
