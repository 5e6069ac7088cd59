package merge_test

import (
	"testing"

	"github.com/caelinsutch/agentlink/pkg/merge"
	"github.com/stretchr/testify/assert"
)

func TestMergeMarkdownChain_SkipsEmptyChunks(t *testing.T) {
	got := merge.MergeMarkdownChain([]string{"# A", "   \n\t  ", "# C"})
	assert.Equal(t, "# A\n\n---\n\n# C", got)
}

func TestMergeMarkdownChain_EdgeCounts(t *testing.T) {
	assert.Equal(t, "", merge.MergeMarkdownChain(nil))
	assert.Equal(t, "", merge.MergeMarkdownChain([]string{"  \n "}))
	assert.Equal(t, "# solo", merge.MergeMarkdownChain([]string{"# solo\n"}))
}

func TestMergeMarkdownChain_TrimsAtJoins(t *testing.T) {
	got := merge.MergeMarkdownChain([]string{"# A\n\n\n", "\n\n# B"})
	assert.Equal(t, "# A\n\n---\n\n# B", got)
}
