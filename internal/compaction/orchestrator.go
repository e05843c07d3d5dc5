package compaction

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// BeforeCompactEvent mirrors the `session_before_compact` event this engine
// consumes: a CompactionRequest plus whatever custom instructions the host
// runtime attaches. Cancellation travels on the ctx passed to
// HandleBeforeCompact.
type BeforeCompactEvent struct {
	Request            CompactionRequest
	CustomInstructions string
}

// BeforeCompactContext mirrors the external collaborators the event handler
// needs: the model identity, a way to resolve its API key, and the
// session-manager identity used to look up runtime knobs in the Registry.
type BeforeCompactContext struct {
	Model            string
	GetAPIKey        func(model string) (string, bool)
	SessionManagerID string
}

// Orchestrator is the top-level compaction state machine (C6). It owns a
// Registry of per-session runtime knobs and a ModelClient used for staged
// summarization.
type Orchestrator struct {
	Registry     *Registry
	Client       ModelClient
	Logger       *slog.Logger
	WorkspaceDir string // defaults to "." when empty
}

// NewOrchestrator constructs an Orchestrator with a fresh Registry.
func NewOrchestrator(client ModelClient, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		Registry: NewRegistry(),
		Client:   client,
		Logger:   logger,
	}
}

// HandleBeforeCompact runs the full compaction pipeline and always returns a
// CompactionArtifact — on any internal failure it returns the fallback
// artifact instead of propagating an error, per the engine's
// never-throw contract.
func (o *Orchestrator) HandleBeforeCompact(ctx context.Context, evt BeforeCompactEvent, bctx BeforeCompactContext) CompactionArtifact {
	req := evt.Request
	log := o.Logger.With("component", "compaction", "session_manager", bctx.SessionManagerID)

	toolFailureSection := formatToolFailures(collectToolFailures(allMessages(req)))
	fileOpsDetails := computeFileOpsDetails(req.FileOps)

	apiKey, haveKey := "", false
	if bctx.GetAPIKey != nil && bctx.Model != "" {
		apiKey, haveKey = bctx.GetAPIKey(bctx.Model)
	}
	if bctx.Model == "" || !haveKey {
		log.Warn("compaction falling back: no model configured", "stage", "start")
		return fallbackArtifact(req, toolFailureSection, fileOpsDetails)
	}

	sessionID := bctx.SessionManagerID
	if sessionID == "" {
		sessionID = req.SessionManagerID
	}
	knobs := resolveKnobs(o.Registry, sessionID, 0, req.StrategyHint)

	log.Info("compaction start",
		"stage", "prune",
		"context_window", knobs.contextWindowTokens,
		"recent_turns_preserve", knobs.recentTurnsPreserve,
		"quality_guard_enabled", knobs.qualityGuardEnabled,
		"quality_guard_max_retries", knobs.qualityGuardMaxRetries,
	)

	summarizable, droppedSummary := o.pruneStep(ctx, req, bctx.Model, apiKey, knobs, log)

	preserved, tailSection := splitPreservedRecentTurns(summarizable, knobs.recentTurnsPreserve)
	// summarizable now excludes the preserved tail.
	summarizable = removeMessages(summarizable, preserved)

	log.Info("compaction preserve_tail", "preserved_count", len(preserved))

	customInstructions := req.CustomInstructions
	if strings.TrimSpace(evt.CustomInstructions) != "" {
		customInstructions = evt.CustomInstructions
	}
	req.CustomInstructions = customInstructions

	summary, err := o.summarizeStep(ctx, req, bctx.Model, apiKey, summarizable, preserved, droppedSummary, knobs, log)
	if err != nil {
		log.Warn("compaction falling back: summarization failed", "stage", "summarize", "error", err.Error())
		return fallbackArtifact(req, toolFailureSection, fileOpsDetails)
	}

	summary = appendSection(summary, tailSection)
	summary = appendSection(summary, toolFailureSection)
	summary = appendSection(summary, formatFileOps(fileOpsDetails))
	summary = appendSection(summary, formatWorkspaceRules(o.workspaceDir()))

	log.Info("compaction assemble", "stage", "assemble", "summary_chars", len(summary))

	return CompactionArtifact{
		Summary:          summary,
		FirstKeptEntryID: req.FirstKeptEntryID,
		TokensBefore:     req.TokensBefore,
		Details:          fileOpsDetails,
	}
}

func (o *Orchestrator) workspaceDir() string {
	if o.WorkspaceDir == "" {
		return "."
	}
	return o.WorkspaceDir
}

// pruneStep implements the PRUNE stage: if tokensBefore is known and the
// "new content" (what must stay verbatim) would starve the summarization
// step of tokens, drop the oldest coarse chunks of summarizable history and
// summarize what was dropped (best-effort; failures become warnings).
func (o *Orchestrator) pruneStep(ctx context.Context, req CompactionRequest, model, apiKey string, knobs resolvedKnobs, log *slog.Logger) ([]*Message, string) {
	summarizable := req.MessagesToSummarize

	if !req.TokensKnown {
		return summarizable, ""
	}

	summarizableTokens := EstimateMessagesTokens(req.MessagesToSummarize) + EstimateMessagesTokens(req.TurnPrefixMessages)
	newContentTokens := req.TokensBefore - summarizableTokens
	if newContentTokens < 0 {
		newContentTokens = 0
	}

	threshold := int(float64(knobs.contextWindowTokens) * knobs.maxHistoryShare * SafetyMargin)
	if newContentTokens <= threshold {
		return summarizable, ""
	}

	pruned := PruneHistoryForContextShare(PruneHistoryForContextShareInput{
		Messages:         req.MessagesToSummarize,
		MaxContextTokens: knobs.contextWindowTokens,
		MaxHistoryShare:  knobs.maxHistoryShare,
		Parts:            2,
	})
	if pruned.DroppedChunks == 0 {
		return summarizable, ""
	}

	log.Warn("compaction pruned history", "stage", "prune", "dropped_chunks", pruned.DroppedChunks, "dropped_messages", pruned.DroppedMessages)

	var droppedSummary string
	if len(pruned.DroppedMessagesList) > 0 {
		adaptiveRatio := ComputeAdaptiveChunkRatio(pruned.DroppedMessagesList, knobs.contextWindowTokens)
		maxChunkTokens := maxInt(1, int(float64(knobs.contextWindowTokens)*adaptiveRatio))

		s, err := SummarizeInStages(ctx, SummarizeInStagesInput{
			Messages:       pruned.DroppedMessagesList,
			Client:         o.Client,
			Model:          model,
			APIKey:         apiKey,
			ReserveTokens:  req.Settings.ReserveTokens,
			MaxChunkTokens: maxChunkTokens,
			ContextWindow:  knobs.contextWindowTokens,
			Instructions:   "Summarize this older, dropped portion of the conversation concisely.",
		})
		if err != nil {
			log.Warn("compaction dropped-history summarization failed", "stage", "prune", "error", err.Error())
		} else {
			droppedSummary = s
		}
	}

	return pruned.Messages, droppedSummary
}

// summarizeStep implements the SUMMARIZE stage including the quality-guard
// retry loop and split-turn handling.
func (o *Orchestrator) summarizeStep(ctx context.Context, req CompactionRequest, model, apiKey string, summarizable, preserved []*Message, droppedSummary string, knobs resolvedKnobs, log *slog.Logger) (string, error) {
	latestAsk, haveLatestAsk := latestUserAsk(concatMessages(summarizable, preserved, req.TurnPrefixMessages))

	seedText := concatText(lastN(concatMessages(summarizable, preserved), 10))
	identifiers := ExtractOpaqueIdentifiers(seedText)

	structuredInstructions := BuildCompactionStructureInstructions(req.CustomInstructions)

	adaptiveRatio := ComputeAdaptiveChunkRatio(concatMessages(summarizable, req.TurnPrefixMessages), knobs.contextWindowTokens)
	maxChunkTokens := maxInt(1, int(float64(knobs.contextWindowTokens)*adaptiveRatio))

	effectivePreviousSummary := req.PreviousSummary
	haveEffectivePrevious := req.HasPreviousSummary
	if droppedSummary != "" {
		effectivePreviousSummary = droppedSummary
		haveEffectivePrevious = true
	}

	totalAttempts := 1
	if knobs.qualityGuardEnabled {
		totalAttempts = knobs.qualityGuardMaxRetries + 1
	}

	currentInstructions := structuredInstructions
	var summary string

	for attempt := 0; attempt < totalAttempts; attempt++ {
		historySummary, err := SummarizeInStages(ctx, SummarizeInStagesInput{
			Messages:           summarizable,
			Client:             o.Client,
			Model:              model,
			APIKey:             apiKey,
			ReserveTokens:      req.Settings.ReserveTokens,
			MaxChunkTokens:     maxChunkTokens,
			ContextWindow:      knobs.contextWindowTokens,
			Instructions:       currentInstructions,
			PreviousSummary:    effectivePreviousSummary,
			HasPreviousSummary: haveEffectivePrevious,
		})
		if err != nil {
			return "", err
		}

		summary = historySummary
		if req.IsSplitTurn && len(req.TurnPrefixMessages) > 0 {
			prefixSummary, err := SummarizeInStages(ctx, SummarizeInStagesInput{
				Messages:       req.TurnPrefixMessages,
				Client:         o.Client,
				Model:          model,
				APIKey:         apiKey,
				ReserveTokens:  req.Settings.ReserveTokens,
				MaxChunkTokens: maxChunkTokens,
				ContextWindow:  knobs.contextWindowTokens,
				Instructions:   TurnPrefixInstructions + "\n\n" + currentInstructions,
			})
			if err != nil {
				return "", err
			}
			summary = historySummary + "\n\n---\n\n**Turn Context (split turn):**\n\n" + prefixSummary
		}

		log.Info("compaction summarize_attempt", "stage", "summarize", "attempt", attempt)

		if !knobs.qualityGuardEnabled || attempt == totalAttempts-1 {
			break
		}

		audit := AuditSummaryQuality(AuditSummaryQualityInput{
			Summary:      summary,
			Identifiers:  identifiers,
			LatestAsk:    latestAsk,
			HasLatestAsk: haveLatestAsk,
		})
		log.Info("compaction quality_audit", "stage", "quality_audit", "attempt", attempt, "ok", audit.OK, "reasons", strings.Join(audit.Reasons, ";"))
		if audit.OK {
			break
		}
		currentInstructions = repairInstructions(structuredInstructions, audit.Reasons)
	}

	return summary, nil
}

func fallbackArtifact(req CompactionRequest, toolFailureSection string, details ArtifactDetails) CompactionArtifact {
	summary := FallbackSummary
	summary = appendSection(summary, toolFailureSection)
	summary = appendSection(summary, formatFileOps(details))
	return CompactionArtifact{
		Summary:          summary,
		FirstKeptEntryID: req.FirstKeptEntryID,
		TokensBefore:     req.TokensBefore,
		Details:          details,
	}
}

func appendSection(base, section string) string {
	if section == "" {
		return base
	}
	return base + section
}

func allMessages(req CompactionRequest) []*Message {
	return concatMessages(req.MessagesToSummarize, req.TurnPrefixMessages)
}

func concatMessages(groups ...[]*Message) []*Message {
	var out []*Message
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func removeMessages(from []*Message, remove []*Message) []*Message {
	if len(remove) == 0 {
		return from
	}
	skip := make(map[*Message]bool, len(remove))
	for _, m := range remove {
		skip[m] = true
	}
	out := make([]*Message, 0, len(from))
	for _, m := range from {
		if !skip[m] {
			out = append(out, m)
		}
	}
	return out
}

func lastN(msgs []*Message, n int) []*Message {
	if len(msgs) <= n {
		return msgs
	}
	return msgs[len(msgs)-n:]
}

func concatText(msgs []*Message) string {
	var sb strings.Builder
	for _, m := range msgs {
		sb.WriteString(m.Text())
		sb.WriteString("\n")
	}
	return sb.String()
}

func latestUserAsk(msgs []*Message) (string, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleUser {
			return msgs[i].Text(), true
		}
	}
	return "", false
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// splitPreservedRecentTurns walks messages from newest to oldest, collecting
// user/assistant message indices until 2*recentTurnsPreserve are collected
// or the list is exhausted. Those messages form the verbatim preserved tail
// (in original order); its rendered section is also returned.
func splitPreservedRecentTurns(messages []*Message, recentTurnsPreserve int) ([]*Message, string) {
	if recentTurnsPreserve <= 0 {
		return nil, ""
	}

	target := 2 * recentTurnsPreserve
	var preservedIdx []int
	for i := len(messages) - 1; i >= 0 && len(preservedIdx) < target; i-- {
		if messages[i].Role == RoleUser || messages[i].Role == RoleAssistant {
			preservedIdx = append(preservedIdx, i)
		}
	}
	if len(preservedIdx) == 0 {
		return nil, ""
	}
	sort.Ints(preservedIdx)

	preserved := make([]*Message, 0, len(preservedIdx))
	for _, i := range preservedIdx {
		preserved = append(preserved, messages[i])
	}

	var sb strings.Builder
	sb.WriteString("## Recent turns preserved verbatim\n")
	wrote := false
	for _, m := range preserved {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			continue
		}
		text := m.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		label := "Assistant"
		if m.Role == RoleUser {
			label = "User"
		}
		text = truncateWithSuffix(text, MaxRecentTurnTextChars, "...")
		sb.WriteString(fmt.Sprintf("- %s: %s\n", label, text))
		wrote = true
	}
	if !wrote {
		return preserved, ""
	}
	return preserved, "\n\n" + sb.String()
}

func truncateWithSuffix(s string, max int, suffix string) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + suffix
}
