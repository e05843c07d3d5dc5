// Package workspacerules reads AGENTS.md from the process's current
// directory and extracts the named sections the compaction orchestrator
// wants to carry into every summary.
package workspacerules

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// Sections is the ordered set of markdown headings extracted from
// AGENTS.md, matched case-insensitively against ATX (`#`/`##`/...) headings.
var Sections = []string{"Session Startup", "Red Lines"}

// Read loads AGENTS.md from dir and extracts Sections, concatenated with a
// blank line between them in Sections order. Any error reading the file
// (missing, unreadable, directory) yields an empty string —
// workspace rules are an optional, best-effort enrichment, never a hard
// dependency.
func Read(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, "AGENTS.md"))
	if err != nil {
		return ""
	}
	return ExtractSections(string(data), Sections)
}

// ExtractSections walks markdown, splitting on ATX headings, and returns the
// body text of each named section (matched case-insensitively, ignoring the
// heading's leading `#`s and surrounding whitespace), concatenated in the
// order names are given, separated by a blank line. Sections not found are
// skipped.
func ExtractSections(markdown string, names []string) string {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[strings.ToLower(strings.TrimSpace(n))] = true
	}

	type section struct {
		name string
		body strings.Builder
	}
	var found []*section
	var current *section

	scanner := bufio.NewScanner(strings.NewReader(markdown))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if heading, ok := atxHeadingText(line); ok {
			current = nil
			key := strings.ToLower(strings.TrimSpace(heading))
			if wanted[key] {
				s := &section{name: key}
				found = append(found, s)
				current = s
			}
			continue
		}
		if current != nil {
			current.body.WriteString(line)
			current.body.WriteString("\n")
		}
	}

	// Preserve the caller's requested order, not the document's order.
	byName := make(map[string]*section, len(found))
	for _, s := range found {
		byName[s.name] = s
	}

	var parts []string
	for _, n := range names {
		key := strings.ToLower(strings.TrimSpace(n))
		s, ok := byName[key]
		if !ok {
			continue
		}
		body := strings.TrimSpace(s.body.String())
		if body == "" {
			continue
		}
		parts = append(parts, body)
	}

	return strings.Join(parts, "\n\n")
}

func atxHeadingText(line string) (string, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	if !strings.HasPrefix(trimmed, "#") {
		return "", false
	}
	i := 0
	for i < len(trimmed) && trimmed[i] == '#' {
		i++
	}
	if i == 0 || i > 6 {
		return "", false
	}
	rest := trimmed[i:]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return "", false
	}
	return strings.TrimSpace(rest), true
}
