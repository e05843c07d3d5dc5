package compaction

import (
	"fmt"
	"sort"
	"strings"

	"github.com/haasonsaas/contextcore/internal/workspacerules"
)

// toolFailure is a single deduplicated tool-result error surfaced in the
// "## Tool Failures" digest.
type toolFailure struct {
	ToolCallID string
	ToolName   string
	Text       string
}

// collectToolFailures scans messages for error tool results, deduplicating
// by ToolCallID (first occurrence wins) and capping at MaxToolFailures.
func collectToolFailures(messages []*Message) []toolFailure {
	seen := make(map[string]bool)
	var out []toolFailure
	for _, m := range messages {
		if m.Role != RoleToolResult || !m.IsError {
			continue
		}
		key := m.ToolCallID
		if key == "" {
			key = fmt.Sprintf("%s:%d", m.ToolName, len(out))
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, toolFailure{
			ToolCallID: m.ToolCallID,
			ToolName:   m.ToolName,
			Text:       truncateWithSuffix(strings.TrimSpace(m.Text()), MaxToolFailureChars, "..."),
		})
		if len(out) >= MaxToolFailures {
			break
		}
	}
	return out
}

// formatToolFailures renders a "## Tool Failures" section, or "" if there
// are none to report.
func formatToolFailures(failures []toolFailure) string {
	if len(failures) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n\n## Tool Failures\n")
	for _, f := range failures {
		name := f.ToolName
		if name == "" {
			name = "unknown"
		}
		sb.WriteString(fmt.Sprintf("- %s: %s\n", name, f.Text))
	}
	return sb.String()
}

// computeFileOpsDetails reduces the request's raw file-operation sets into
// the artifact's ReadFiles/ModifiedFiles lists. Edited and written files are
// merged into ModifiedFiles; ReadFiles excludes anything that also appears
// there, since a file that was modified belongs only in the modified set.
// Both lists are deduplicated and sorted.
func computeFileOpsDetails(fo FileOps) ArtifactDetails {
	modified := dedupStrings(append(append([]string{}, fo.Edited...), fo.Written...))
	modifiedSet := make(map[string]bool, len(modified))
	for _, f := range modified {
		modifiedSet[f] = true
	}

	var read []string
	for _, f := range dedupStrings(fo.Read) {
		if modifiedSet[f] {
			continue
		}
		read = append(read, f)
	}

	sort.Strings(read)
	sort.Strings(modified)

	return ArtifactDetails{
		ReadFiles:     read,
		ModifiedFiles: modified,
	}
}

func dedupStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// formatFileOps renders the <read-files>/<modified-files> XML-like blocks
// the compacted summary carries forward, or "" when both sets are empty.
func formatFileOps(details ArtifactDetails) string {
	if len(details.ReadFiles) == 0 && len(details.ModifiedFiles) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n\n")
	if len(details.ReadFiles) > 0 {
		sb.WriteString("<read-files>\n")
		for _, f := range details.ReadFiles {
			sb.WriteString(f)
			sb.WriteString("\n")
		}
		sb.WriteString("</read-files>\n")
	}
	if len(details.ModifiedFiles) > 0 {
		sb.WriteString("<modified-files>\n")
		for _, f := range details.ModifiedFiles {
			sb.WriteString(f)
			sb.WriteString("\n")
		}
		sb.WriteString("</modified-files>\n")
	}
	return sb.String()
}

// formatWorkspaceRules reads workspace rules from dir, truncates to
// MaxSummaryContextChars, and wraps the result in
// <workspace-critical-rules> tags. Returns "" if there are no rules to
// carry forward.
func formatWorkspaceRules(dir string) string {
	rules := workspacerules.Read(dir)
	rules = strings.TrimSpace(rules)
	if rules == "" {
		return ""
	}
	if len(rules) > MaxSummaryContextChars {
		rules = rules[:MaxSummaryContextChars] + "..."
	}
	return "\n\n<workspace-critical-rules>\n" + rules + "\n</workspace-critical-rules>"
}
