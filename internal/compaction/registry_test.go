package compaction

import "testing"

func TestRegistrySetGetClear(t *testing.T) {
	reg := NewRegistry()
	if _, ok := reg.Get("session-a"); ok {
		t.Fatal("expected no entry before Set")
	}

	retries := 2
	reg.Set("session-a", &SafeguardRuntime{QualityGuardMaxRetries: &retries})

	rt, ok := reg.Get("session-a")
	if !ok || rt.QualityGuardMaxRetries == nil || *rt.QualityGuardMaxRetries != 2 {
		t.Fatalf("expected stored runtime, got %+v ok=%v", rt, ok)
	}

	reg.Set("session-a", nil)
	if _, ok := reg.Get("session-a"); ok {
		t.Fatal("expected Set(nil) to clear the entry")
	}

	reg.Set("session-b", &SafeguardRuntime{})
	reg.Clear()
	if _, ok := reg.Get("session-b"); ok {
		t.Fatal("expected Clear() to remove all entries")
	}
}

func TestResolveKnobsDefaultsAndClamping(t *testing.T) {
	reg := NewRegistry()
	k := resolveKnobs(reg, "unknown", 0, StrategyHintAuto)
	if k.contextWindowTokens != DefaultContextWindow {
		t.Errorf("expected default context window, got %d", k.contextWindowTokens)
	}
	if k.recentTurnsPreserve != DefaultRecentTurnsPreserve {
		t.Errorf("expected default recent turns, got %d", k.recentTurnsPreserve)
	}

	over := MaxRecentTurnsPreserve + 10
	reg.Set("session", &SafeguardRuntime{RecentTurnsPreserve: &over})
	k = resolveKnobs(reg, "session", 50000, StrategyHintAuto)
	if k.recentTurnsPreserve != MaxRecentTurnsPreserve {
		t.Errorf("expected clamped recent turns %d, got %d", MaxRecentTurnsPreserve, k.recentTurnsPreserve)
	}
	if k.contextWindowTokens != 50000 {
		t.Errorf("expected model context window to apply, got %d", k.contextWindowTokens)
	}
}

func TestResolveKnobsStrategyHint(t *testing.T) {
	reg := NewRegistry()

	auto := resolveKnobs(reg, "unknown", 0, StrategyHintAuto)
	aggressive := resolveKnobs(reg, "unknown", 0, StrategyHintAggressive)
	conservative := resolveKnobs(reg, "unknown", 0, StrategyHintConservative)

	if aggressive.maxHistoryShare <= auto.maxHistoryShare {
		t.Errorf("expected aggressive maxHistoryShare (%v) > auto (%v)", aggressive.maxHistoryShare, auto.maxHistoryShare)
	}
	if conservative.maxHistoryShare >= auto.maxHistoryShare {
		t.Errorf("expected conservative maxHistoryShare (%v) < auto (%v)", conservative.maxHistoryShare, auto.maxHistoryShare)
	}
	if aggressive.qualityGuardMaxRetries >= auto.qualityGuardMaxRetries {
		t.Errorf("expected aggressive qualityGuardMaxRetries (%d) < auto (%d)", aggressive.qualityGuardMaxRetries, auto.qualityGuardMaxRetries)
	}
	if conservative.qualityGuardMaxRetries <= auto.qualityGuardMaxRetries {
		t.Errorf("expected conservative qualityGuardMaxRetries (%d) > auto (%d)", conservative.qualityGuardMaxRetries, auto.qualityGuardMaxRetries)
	}

	// An explicit Registry override always wins over the hint's bias.
	share := 0.9
	reg.Set("session", &SafeguardRuntime{MaxHistoryShare: &share})
	overridden := resolveKnobs(reg, "session", 0, StrategyHintConservative)
	if overridden.maxHistoryShare != share {
		t.Errorf("expected Registry override %v to win over hint, got %v", share, overridden.maxHistoryShare)
	}
}
