package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"vote.cast", "vote.cats", 2},
		{"wähl", "wahl", 1},
	}
	for _, tt := range tests {
		t.Run(tt.a+"→"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, LevenshteinDistance(tt.a, tt.b))
		})
	}
}

func TestFindSimilar(t *testing.T) {
	ids := []string{"vote.cast", "vote.tally", "ELECTION#Open()", "ledger.record"}

	assert.Equal(t, []string{"vote.cast"}, FindSimilar("vote.cats", ids))
	assert.Equal(t, []string{"vote.cast"}, FindSimilar("VOTE.CAST", ids))
	assert.Equal(t, []string{"ELECTION#Open()"}, FindSimilar("election", ids))
	assert.Empty(t, FindSimilar("zzzzzzzz", ids))
}

func TestFindSimilarLimitsSuggestions(t *testing.T) {
	ids := []string{"a1", "a2", "a3", "a4", "a5"}
	got := FindSimilar("a", ids)
	assert.Len(t, got, DefaultMaxSuggestions)
	assert.Equal(t, []string{"a1", "a2", "a3"}, got)
}
