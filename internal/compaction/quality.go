package compaction

import (
	"fmt"
	"regexp"
	"strings"
)

// BuildCompactionStructureInstructions emits the header instructing the
// summarization model to produce exactly RequiredSummarySections, in order,
// preserving literal identifiers and not omitting unresolved user asks. If
// customInstructions is non-blank, an "Additional focus:" block is appended.
func BuildCompactionStructureInstructions(customInstructions string) string {
	var sb strings.Builder
	sb.WriteString("Produce a structured summary with exactly the following sections, in this order:\n")
	for _, section := range RequiredSummarySections {
		sb.WriteString("- ")
		sb.WriteString(section)
		sb.WriteString("\n")
	}
	sb.WriteString("\nPreserve literal identifiers (file paths, URLs, hashes, hosts, ports) verbatim in \"## Exact identifiers\". ")
	sb.WriteString("Do not omit any unresolved question or request the user has asked but not yet received an answer to.")

	if strings.TrimSpace(customInstructions) != "" {
		sb.WriteString("\n\nAdditional focus: ")
		sb.WriteString(strings.TrimSpace(customInstructions))
	}
	return sb.String()
}

var (
	hexRunRe     = regexp.MustCompile(`\b[0-9a-fA-F]{8,}\b`)
	urlRe        = regexp.MustCompile(`https?://[^\s"'` + "`" + `<>]+`)
	posixPathRe  = regexp.MustCompile(`(?:^|\s)(/[\w.\-]+(?:/[\w.\-]+)+)`)
	winPathRe    = regexp.MustCompile(`\b[A-Za-z]:\\(?:[^\s"'` + "`" + `<>]+)`)
	hostPortRe   = regexp.MustCompile(`\b[a-zA-Z0-9][a-zA-Z0-9_.\-]*:\d{1,5}\b`)
	bigIntRe     = regexp.MustCompile(`\b\d{6,}\b`)
	leadingTrim  = "(\"'`[{<"
	trailingTrim = ")]\"'`,;:.!?<>"
)

// ExtractOpaqueIdentifiers pulls candidate "exact identifier" substrings out
// of free text: long hex runs, URLs, absolute POSIX/Windows paths,
// host:port pairs, and long integer runs. Candidates are stripped of
// leading/trailing wrapping punctuation, deduplicated preserving first
// occurrence, filtered to length >= 4, and capped at
// MaxExtractedIdentifiers.
func ExtractOpaqueIdentifiers(text string) []string {
	var candidates []string

	candidates = append(candidates, hexRunRe.FindAllString(text, -1)...)
	candidates = append(candidates, urlRe.FindAllString(text, -1)...)
	for _, m := range posixPathRe.FindAllStringSubmatch(text, -1) {
		candidates = append(candidates, m[1])
	}
	candidates = append(candidates, winPathRe.FindAllString(text, -1)...)
	candidates = append(candidates, hostPortRe.FindAllString(text, -1)...)
	candidates = append(candidates, bigIntRe.FindAllString(text, -1)...)

	seen := make(map[string]bool, len(candidates))
	var out []string
	for _, c := range candidates {
		c = strings.TrimLeft(c, leadingTrim)
		c = strings.TrimRight(c, trailingTrim)
		if len(c) < 4 {
			continue
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
		if len(out) >= MaxExtractedIdentifiers {
			break
		}
	}
	return out
}

// AuditSummaryQualityInput bundles AuditSummaryQuality's arguments.
type AuditSummaryQualityInput struct {
	Summary     string
	Identifiers []string
	LatestAsk   string
	HasLatestAsk bool
}

// AuditSummaryQualityResult is C5's verdict.
type AuditSummaryQualityResult struct {
	OK      bool
	Reasons []string
}

var tokenRe = regexp.MustCompile(`[a-z0-9]+`)

// AuditSummaryQuality checks a produced summary against structural and
// content predicates:
//   - every RequiredSummarySections header must appear verbatim;
//   - every seed identifier must appear verbatim;
//   - if latestAsk has any lowercase alphanumeric token of length >= 5
//     (first 8 such tokens), at least one must appear as a substring of the
//     lowercased summary.
func AuditSummaryQuality(in AuditSummaryQualityInput) AuditSummaryQualityResult {
	var reasons []string

	for _, section := range RequiredSummarySections {
		if !strings.Contains(in.Summary, section) {
			reasons = append(reasons, "missing_section:"+section)
		}
	}

	var missingIDs []string
	for _, id := range in.Identifiers {
		if !strings.Contains(in.Summary, id) {
			missingIDs = append(missingIDs, id)
			if len(missingIDs) == 3 {
				break
			}
		}
	}
	if len(missingIDs) > 0 {
		reasons = append(reasons, "missing_identifiers:"+strings.Join(missingIDs, ","))
	}

	if in.HasLatestAsk {
		lower := strings.ToLower(in.LatestAsk)
		tokens := tokenRe.FindAllString(lower, -1)
		var long []string
		for _, t := range tokens {
			if len(t) >= 5 {
				long = append(long, t)
				if len(long) == 8 {
					break
				}
			}
		}
		if len(long) > 0 {
			lowerSummary := strings.ToLower(in.Summary)
			found := false
			for _, t := range long {
				if strings.Contains(lowerSummary, t) {
					found = true
					break
				}
			}
			if !found {
				reasons = append(reasons, "latest_user_ask_not_reflected")
			}
		}
	}

	return AuditSummaryQualityResult{OK: len(reasons) == 0, Reasons: reasons}
}

// repairInstructions builds the follow-up instructions sent after a failed
// quality audit, asking the model to fix every listed reason.
func repairInstructions(structured string, reasons []string) string {
	return fmt.Sprintf("%s\n\nPrevious summary failed quality checks (%s). Fix all issues and include every required section with exact identifiers preserved.",
		structured, strings.Join(reasons, ", "))
}
