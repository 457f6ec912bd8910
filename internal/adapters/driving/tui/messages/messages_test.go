package messages

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/recall/internal/core/domain"
)

func TestViewType_String(t *testing.T) {
	tests := []struct {
		view ViewType
		want string
	}{
		{ViewMenu, "menu"},
		{ViewSearch, "search"},
		{ViewDocuments, "documents"},
		{ViewDocContent, "doc_content"},
		{ViewHelp, "help"},
		{ViewType(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.view.String())
		})
	}
}

func TestViewType_Distinct(t *testing.T) {
	seen := map[ViewType]bool{}
	for _, v := range []ViewType{ViewMenu, ViewSearch, ViewDocuments, ViewDocContent, ViewHelp} {
		assert.False(t, seen[v], "duplicate view %s", v)
		seen[v] = true
	}
}

func TestMessages_CarryPayload(t *testing.T) {
	err := errors.New("boom")

	completed := SearchCompleted{
		Query:   "pasta",
		Results: []domain.SearchResult{{SourceDocument: "food.md"}},
	}
	assert.Equal(t, "food.md", completed.Results[0].SourceDocument)

	selected := DocumentSelected{Path: "food.md", Back: ViewSearch}
	assert.Equal(t, ViewSearch, selected.Back)

	reindexed := DocumentReindexed{Path: "food.md", Err: err}
	assert.ErrorIs(t, reindexed.Err, err)
}
