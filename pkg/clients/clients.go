// Package clients holds the static table of supported agent CLI
// tools: where each of them expects instructions, commands, hooks,
// and skills, and how to probe whether it is installed.
package clients

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/caelinsutch/agentlink/pkg/types"
)

// Client identifies one supported tool.
type Client string

const (
	Claude   Client = "claude"
	Codex    Client = "codex"
	Cursor   Client = "cursor"
	Opencode Client = "opencode"
)

// Scope selects which set of target paths a projection uses.
type Scope int

const (
	// ScopeProject projects into a project directory.
	ScopeProject Scope = iota
	// ScopeGlobal projects into home-scoped client directories.
	ScopeGlobal
)

// All returns every supported client in stable order.
func All() []Client {
	return []Client{Claude, Codex, Cursor, Opencode}
}

// Parse validates user-supplied client names.
func Parse(names []string) ([]Client, error) {
	if len(names) == 0 {
		return nil, nil
	}
	valid := make(map[Client]bool)
	for _, c := range All() {
		valid[c] = true
	}
	result := make([]Client, 0, len(names))
	for _, name := range names {
		c := Client(strings.ToLower(strings.TrimSpace(name)))
		if !valid[c] {
			return nil, fmt.Errorf("unknown client %q (supported: claude, codex, cursor, opencode)", name)
		}
		result = append(result, c)
	}
	return result, nil
}

// target is one cell of the static layout table, as a relative path
// under the project dir (project scope) or the home dir (global
// scope). A nil cell means the client has no home for that resource
// and is skipped silently.
type target struct {
	project string
	global  string
}

var layout = map[Client]map[types.ResourceKind]target{
	Claude: {
		types.ResourceInstructions: {project: "CLAUDE.md", global: ".claude/CLAUDE.md"},
		types.ResourceCommands:     {project: ".claude/commands", global: ".claude/commands"},
		types.ResourceHooks:        {project: ".claude/hooks", global: ".claude/hooks"},
		types.ResourceSkills:       {project: ".claude/skills", global: ".claude/skills"},
	},
	Codex: {
		types.ResourceInstructions: {project: "AGENTS.md", global: ".codex/AGENTS.md"},
		types.ResourceCommands:     {project: ".codex/prompts", global: ".codex/prompts"},
	},
	Cursor: {
		types.ResourceInstructions: {project: "AGENTS.md"},
		types.ResourceCommands:     {project: ".cursor/commands", global: ".cursor/commands"},
	},
	Opencode: {
		types.ResourceInstructions: {project: "AGENTS.md"},
		types.ResourceCommands:     {project: ".opencode/command", global: ".config/opencode/command"},
	},
}

// TargetPath resolves the absolute destination for one (client,
// resource) cell. The boolean is false when the table has no cell for
// the pair in the requested scope.
func TargetPath(c Client, kind types.ResourceKind, scope Scope, projectDir, homeDir string) (string, bool) {
	cell, ok := layout[c][kind]
	if !ok {
		return "", false
	}
	switch scope {
	case ScopeGlobal:
		if cell.global == "" {
			return "", false
		}
		return filepath.Join(homeDir, filepath.FromSlash(cell.global)), true
	default:
		if cell.project == "" {
			return "", false
		}
		return filepath.Join(projectDir, filepath.FromSlash(cell.project)), true
	}
}

// WantsPriorityInstructions reports whether a client consumes the
// priority instructions filename verbatim. Every other client
// receives the default-filename resolution instead.
func WantsPriorityInstructions(c Client) bool {
	return c == Claude
}

// probeDirs lists the directories whose presence marks a client as
// installed.
var probeDirs = map[Client][]string{
	Claude:   {".claude"},
	Codex:    {".codex"},
	Cursor:   {".cursor"},
	Opencode: {filepath.Join(".config", "opencode"), ".opencode"},
}

// DefaultFallback is the static client set used when no client can
// be detected, chosen for unattended repair runs.
var DefaultFallback = []Client{Claude}

// Detect probes every known client concurrently and returns the ones
// that appear installed, in stable order. Probes are read-only and
// write to disjoint result slots, so ordering between them is
// irrelevant.
func Detect(fsys types.FS, homeDir string) []Client {
	all := All()
	present := make([]bool, len(all))

	done := make(chan struct{})
	for i, c := range all {
		go func(slot int, c Client) {
			defer func() { done <- struct{}{} }()
			for _, dir := range probeDirs[c] {
				info, err := fsys.Stat(filepath.Join(homeDir, dir))
				if err == nil && info.IsDir() {
					present[slot] = true
					return
				}
			}
		}(i, c)
	}
	for range all {
		<-done
	}

	var detected []Client
	for i, c := range all {
		if present[i] {
			detected = append(detected, c)
		}
	}
	sort.Slice(detected, func(i, j int) bool { return detected[i] < detected[j] })
	return detected
}
