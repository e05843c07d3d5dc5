package retrieval

import (
	"math"
	"testing"
)

func TestBuildFtsQuery(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"empty", "", "", false},
		{"punctuation only", "!!! ??? ---", "", false},
		{"single term", "hello", `"hello"`, true},
		{"multiple terms", "hello world", `"hello" AND "world"`, true},
		{"strips embedded quotes", `say "hello"`, `"say" AND "hello"`, true},
		{"underscore runs kept whole", "foo_bar baz", `"foo_bar" AND "baz"`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := BuildFtsQuery(tt.raw)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBm25RankToScore(t *testing.T) {
	tests := []struct {
		name string
		rank float64
		want float64
	}{
		{"zero rank", 0, 1.0},
		{"positive rank", 1, 0.5},
		{"negative rank clamped to zero", -5, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Bm25RankToScore(tt.rank); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBm25RankToScoreNonFinite(t *testing.T) {
	got := Bm25RankToScore(math.Inf(1))
	want := 1.0 / 1000.0
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	got = Bm25RankToScore(math.NaN())
	if got != want {
		t.Errorf("NaN: got %v, want %v", got, want)
	}
}
