package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall/internal/core/domain"
)

func TestDistillCmd_AllScopes(t *testing.T) {
	a := newTestApp()
	a.Distill = &mockDistillRunner{distilled: 2}
	useApp(t, a)

	out, err := execute(t, "distill")

	require.NoError(t, err)
	assert.Equal(t, "Distilled 2 scopes", out)
}

func TestDistillCmd_Scope(t *testing.T) {
	tests := []struct {
		name    string
		outcome domain.DistillOutcome
		want    []string
	}{
		{
			name:    "below threshold",
			outcome: domain.DistillOutcome{Pending: 4},
			want:    []string{"chat-1: 4 pending turns, threshold is 20"},
		},
		{
			name:    "distilled and indexed",
			outcome: domain.DistillOutcome{Pending: 21, Distilled: true, Document: "memory/2026-10-18.md", Indexed: true},
			want:    []string{"chat-1: distilled 21 turns into memory/2026-10-18.md"},
		},
		{
			name:    "distilled without index",
			outcome: domain.DistillOutcome{Pending: 25, Distilled: true, Document: "memory/2026-10-18.md"},
			want:    []string{"distilled 25 turns", "not indexed: embedding service unavailable"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestApp()
			runner := &mockDistillRunner{outcome: tt.outcome}
			a.Distill = runner
			useApp(t, a)

			out, err := execute(t, "distill", "--scope", "chat-1")

			require.NoError(t, err)
			assert.Equal(t, []string{"chat-1"}, runner.scopes)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
		})
	}
}

func TestDistillCmd_Error(t *testing.T) {
	a := newTestApp()
	a.Distill = &mockDistillRunner{err: domain.ErrLLMUnavailable}
	useApp(t, a)

	_, err := execute(t, "distill", "-s", "chat-1")

	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}
