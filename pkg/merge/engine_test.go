package merge_test

import (
	"path/filepath"
	"testing"

	"github.com/caelinsutch/agentlink/pkg/chain"
	"github.com/caelinsutch/agentlink/pkg/filesystem"
	"github.com/caelinsutch/agentlink/pkg/merge"
	"github.com/caelinsutch/agentlink/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	fs types.FS
	ch *chain.Chain
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{
		fs: filesystem.NewMemory(),
		ch: &chain.Chain{
			Current:   "/proj/.agentlink",
			Ancestors: []string{"/mono/.agentlink"},
			Global:    "/home/u/.agentlink",
		},
	}
}

func (f *fixture) write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, f.fs.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, f.fs.WriteFile(path, []byte(content), 0644))
}

func (f *fixture) read(t *testing.T, path string) string {
	t.Helper()
	data, err := f.fs.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func (f *fixture) config(t *testing.T, content string) {
	f.write(t, "/proj/.agentlink/config.yaml", content)
}

func (f *fixture) resolve(t *testing.T, kind types.ResourceKind) *merge.Resolved {
	t.Helper()
	resolved, err := merge.NewEngine(f.fs, f.ch).Resolve(kind)
	require.NoError(t, err)
	return resolved
}

func TestResolve_InheritFirstMatchWins(t *testing.T) {
	f := newFixture(t)
	f.write(t, "/mono/.agentlink/commands/build.md", "mono")
	f.write(t, "/home/u/.agentlink/commands/build.md", "global")

	resolved := f.resolve(t, types.ResourceCommands)

	require.NotNil(t, resolved)
	assert.Equal(t, "/mono/.agentlink/commands", resolved.Source)
	assert.False(t, resolved.Synthesized, "inherit never merges")
}

func TestResolve_OverrideIgnoresAncestors(t *testing.T) {
	f := newFixture(t)
	f.config(t, "extends: false\n")
	f.write(t, "/mono/.agentlink/commands/build.md", "mono")

	assert.Nil(t, f.resolve(t, types.ResourceCommands), "ancestors never considered under override")

	f.write(t, "/proj/.agentlink/commands/local.md", "local")
	resolved := f.resolve(t, types.ResourceCommands)
	require.NotNil(t, resolved)
	assert.Equal(t, "/proj/.agentlink/commands", resolved.Source)
}

func TestResolve_ExtendSingleContributorStaysLive(t *testing.T) {
	f := newFixture(t)
	f.config(t, "extends:\n  commands: extend\n")
	f.write(t, "/mono/.agentlink/commands/build.md", "mono")

	resolved := f.resolve(t, types.ResourceCommands)

	require.NotNil(t, resolved)
	assert.Equal(t, "/mono/.agentlink/commands", resolved.Source)
	assert.False(t, resolved.Synthesized)
}

func TestResolve_ExtendUnionNearestWins(t *testing.T) {
	f := newFixture(t)
	f.config(t, "extends:\n  commands: extend\n")
	f.write(t, "/proj/.agentlink/commands/build.md", "near")
	f.write(t, "/mono/.agentlink/commands/build.md", "mid")
	f.write(t, "/mono/.agentlink/commands/deploy.md", "mid")
	f.write(t, "/home/u/.agentlink/commands/release.md", "far")

	resolved := f.resolve(t, types.ResourceCommands)

	require.NotNil(t, resolved)
	assert.True(t, resolved.Synthesized)
	assert.Equal(t, "/proj/.agentlink/merged/commands", resolved.Source)

	assert.Equal(t, "near", f.read(t, "/proj/.agentlink/merged/commands/build.md"))
	assert.Equal(t, "mid", f.read(t, "/proj/.agentlink/merged/commands/deploy.md"))
	assert.Equal(t, "far", f.read(t, "/proj/.agentlink/merged/commands/release.md"))
}

func TestResolve_ExtendZeroMatchesNoMapping(t *testing.T) {
	f := newFixture(t)
	f.config(t, "extends:\n  skills: extend\n")

	assert.Nil(t, f.resolve(t, types.ResourceSkills))
}

func TestResolve_ExtendHonorsExcludeGlobs(t *testing.T) {
	f := newFixture(t)
	f.config(t, "extends:\n  commands: extend\nexclude:\n  - \"commands/*.local.md\"\n")
	f.write(t, "/proj/.agentlink/commands/a.md", "a")
	f.write(t, "/mono/.agentlink/commands/b.local.md", "private")
	f.write(t, "/mono/.agentlink/commands/c.md", "c")

	resolved := f.resolve(t, types.ResourceCommands)

	require.NotNil(t, resolved)
	_, err := f.fs.Stat("/proj/.agentlink/merged/commands/b.local.md")
	assert.Error(t, err, "excluded file must not be copied")
	assert.Equal(t, "c", f.read(t, "/proj/.agentlink/merged/commands/c.md"))
}

func TestResolve_ExtendMergedDirIsRebuiltFromScratch(t *testing.T) {
	f := newFixture(t)
	f.config(t, "extends:\n  commands: extend\n")
	f.write(t, "/proj/.agentlink/commands/a.md", "a")
	f.write(t, "/mono/.agentlink/commands/b.md", "b")
	// Stale leftover from an earlier resolution.
	f.write(t, "/proj/.agentlink/merged/commands/stale.md", "stale")

	resolved := f.resolve(t, types.ResourceCommands)

	require.NotNil(t, resolved)
	_, err := f.fs.Stat("/proj/.agentlink/merged/commands/stale.md")
	assert.Error(t, err, "merge output must be deleted and regenerated, never patched")
}

func TestResolve_ComposeEmptyIncludeReturnsCurrentUnmerged(t *testing.T) {
	f := newFixture(t)
	f.config(t, "extends:\n  commands: compose\ninclude:\n  commands: []\n")
	f.write(t, "/proj/.agentlink/commands/local.md", "local")
	f.write(t, "/mono/.agentlink/commands/build.md", "mono")

	resolved := f.resolve(t, types.ResourceCommands)

	require.NotNil(t, resolved)
	assert.Equal(t, "/proj/.agentlink/commands", resolved.Source)
	assert.False(t, resolved.Synthesized, "no merge directory for an empty include list")
}

func TestResolve_ComposeCherryPicksAndLayersCurrent(t *testing.T) {
	// The canonical scenario: include [build.md], ancestor has
	// build.md and deploy.md, current has local.md. The merge result
	// is exactly build.md + local.md.
	f := newFixture(t)
	f.config(t, `
extends:
  commands: compose
  default: inherit
include:
  commands: [build.md]
`)
	f.write(t, "/mono/.agentlink/commands/build.md", "mono-build")
	f.write(t, "/mono/.agentlink/commands/deploy.md", "mono-deploy")
	f.write(t, "/proj/.agentlink/commands/local.md", "local")

	resolved := f.resolve(t, types.ResourceCommands)

	require.NotNil(t, resolved)
	assert.True(t, resolved.Synthesized)

	entries, err := f.fs.ReadDir(resolved.Source)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"build.md", "local.md"}, names)
	assert.Equal(t, "mono-build", f.read(t, filepath.Join(resolved.Source, "build.md")))
}

func TestResolve_ComposeCurrentWinsCollision(t *testing.T) {
	f := newFixture(t)
	f.config(t, "extends:\n  commands: compose\ninclude:\n  commands: [build.md]\n")
	f.write(t, "/mono/.agentlink/commands/build.md", "mono")
	f.write(t, "/proj/.agentlink/commands/build.md", "local")

	resolved := f.resolve(t, types.ResourceCommands)

	require.NotNil(t, resolved)
	assert.Equal(t, "local", f.read(t, filepath.Join(resolved.Source, "build.md")))
}

func TestResolve_ComposeNearestAncestorFirstMatch(t *testing.T) {
	f := newFixture(t)
	f.config(t, "extends:\n  skills: compose\ninclude:\n  skills: [reviewer/]\n")
	f.write(t, "/mono/.agentlink/skills/reviewer/SKILL.md", "near ancestor")
	f.write(t, "/home/u/.agentlink/skills/reviewer/SKILL.md", "global")

	resolved := f.resolve(t, types.ResourceSkills)

	require.NotNil(t, resolved)
	assert.Equal(t, "near ancestor", f.read(t, filepath.Join(resolved.Source, "reviewer", "SKILL.md")))
}

func TestResolve_ComposeNothingCollectedNoMapping(t *testing.T) {
	f := newFixture(t)
	f.config(t, "extends:\n  commands: compose\ninclude:\n  commands: [missing.md]\n")

	assert.Nil(t, f.resolve(t, types.ResourceCommands))
}

func TestResolve_InstructionsPriorityAtSameNode(t *testing.T) {
	f := newFixture(t)
	f.write(t, "/proj/.agentlink/AGENTS.md", "# agents")
	f.write(t, "/proj/.agentlink/CLAUDE.md", "# claude")

	resolved := f.resolve(t, types.ResourceInstructions)

	require.NotNil(t, resolved)
	assert.Equal(t, "/proj/.agentlink/CLAUDE.md", resolved.Source)
	assert.Equal(t, types.MappingFile, resolved.Kind)
}

func TestResolve_InstructionsExtendConcatenatesFarthestFirst(t *testing.T) {
	f := newFixture(t)
	f.config(t, "extends:\n  instructions: extend\n")
	f.write(t, "/proj/.agentlink/AGENTS.md", "# proj")
	f.write(t, "/mono/.agentlink/AGENTS.md", "   \n")
	f.write(t, "/home/u/.agentlink/AGENTS.md", "# global")

	resolved := f.resolve(t, types.ResourceInstructions)

	require.NotNil(t, resolved)
	assert.True(t, resolved.Synthesized)
	assert.Equal(t, "# global\n\n---\n\n# proj", f.read(t, resolved.Source))
}

func TestResolve_InstructionsExtendSingleContributorPassThrough(t *testing.T) {
	f := newFixture(t)
	f.config(t, "extends:\n  instructions: extend\n")
	f.write(t, "/mono/.agentlink/AGENTS.md", "# mono")

	resolved := f.resolve(t, types.ResourceInstructions)

	require.NotNil(t, resolved)
	assert.Equal(t, "/mono/.agentlink/AGENTS.md", resolved.Source)
	assert.False(t, resolved.Synthesized)
}

func TestResolve_InstructionsExtendAllWhitespaceNoMapping(t *testing.T) {
	f := newFixture(t)
	f.config(t, "extends:\n  instructions: extend\n")
	f.write(t, "/proj/.agentlink/AGENTS.md", " \n ")
	f.write(t, "/mono/.agentlink/AGENTS.md", "\t")

	assert.Nil(t, f.resolve(t, types.ResourceInstructions))
}

func TestResolveInstructionsNamed_LowerPriorityOnly(t *testing.T) {
	f := newFixture(t)
	f.write(t, "/proj/.agentlink/CLAUDE.md", "# claude")
	f.write(t, "/mono/.agentlink/AGENTS.md", "# mono agents")

	engine := merge.NewEngine(f.fs, f.ch)
	resolved, err := engine.ResolveInstructionsNamed("AGENTS.md")
	require.NoError(t, err)

	require.NotNil(t, resolved)
	assert.Equal(t, "/mono/.agentlink/AGENTS.md", resolved.Source, "CLAUDE.md must be invisible to the named resolution")
}

func TestResolveSingle(t *testing.T) {
	fsys := filesystem.NewMemory()
	require.NoError(t, fsys.MkdirAll("/home/u/.agentlink/commands", 0755))

	resolved := merge.ResolveSingle(fsys, "/home/u/.agentlink", types.ResourceCommands)
	require.NotNil(t, resolved)
	assert.Equal(t, "/home/u/.agentlink/commands", resolved.Source)

	assert.Nil(t, merge.ResolveSingle(fsys, "/home/u/.agentlink", types.ResourceSkills))
}

func TestResolve_NoCurrentNodeInheritsFromChain(t *testing.T) {
	fsys := filesystem.NewMemory()
	require.NoError(t, fsys.MkdirAll("/home/u/.agentlink/commands", 0755))
	require.NoError(t, fsys.WriteFile("/home/u/.agentlink/commands/x.md", []byte("x"), 0644))

	ch := &chain.Chain{Global: "/home/u/.agentlink"}
	resolved, err := merge.NewEngine(fsys, ch).Resolve(types.ResourceCommands)
	require.NoError(t, err)

	require.NotNil(t, resolved)
	assert.Equal(t, "/home/u/.agentlink/commands", resolved.Source)
}
