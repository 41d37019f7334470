package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/wiki-game/internal/errors"
	"go.uber.org/zap"
)

func TestHeuristicSelector_ChooseNextArticle(t *testing.T) {
	selector := NewHeuristicSelector(zap.NewNop())
	ctx := context.Background()

	tests := []struct {
		name    string
		current string
		target  string
		links   []string
		want    string
	}{
		{
			name:    "目标在出链中直接命中",
			current: "Apple",
			target:  "Fruit",
			links:   []string{"Tree", "Fruit", "Apple Inc."},
			want:    "Fruit",
		},
		{
			name:    "命中不区分大小写",
			current: "Apple",
			target:  "fruit",
			links:   []string{"Tree", "Fruit"},
			want:    "Fruit",
		},
		{
			name:    "按词元重合度选择",
			current: "Apple",
			target:  "Fruit salad",
			links:   []string{"Tree", "Fruit juice", "Apple Inc."},
			want:    "Fruit juice",
		},
		{
			name:    "无重合时保留首个候选",
			current: "Apple",
			target:  "Quantum mechanics",
			links:   []string{"Tree", "Orchard"},
			want:    "Tree",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := selector.ChooseNextArticle(ctx, tt.current, tt.target, tt.links)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHeuristicSelector_NoLinks(t *testing.T) {
	selector := NewHeuristicSelector(zap.NewNop())

	_, err := selector.ChooseNextArticle(context.Background(), "Dead End", "Fruit", nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrNoCandidate, errors.GetCode(err))
}
