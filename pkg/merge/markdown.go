package merge

import "strings"

// markdownSeparator joins contributing instruction files in extend
// merges.
const markdownSeparator = "\n\n---\n\n"

// MergeMarkdownChain concatenates instruction-file contents given
// farthest-first. Each chunk is trimmed and empty or whitespace-only
// chunks are dropped, so no double blank lines appear at the joins.
// Zero surviving chunks yield the empty string.
func MergeMarkdownChain(contents []string) string {
	parts := make([]string, 0, len(contents))
	for _, content := range contents {
		trimmed := strings.TrimSpace(content)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	return strings.Join(parts, markdownSeparator)
}
