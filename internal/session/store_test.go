package session

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NikolozR/suliko-client/internal/domain"
)

func TestOpenReplacesSessionForSameChat(t *testing.T) {
	store := NewStore()

	first := store.Open("c1", "j1")
	require.NoError(t, store.Update(first.ID, func(sess *Session) {
		sess.TranslatedMarkdown = "old project content"
	}))

	second := store.Open("c1", "j2")

	_, err := store.Get(first.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound, "opening the same chat replaces the old session")

	got, err := store.Get(second.ID)
	require.NoError(t, err)
	assert.Empty(t, got.TranslatedMarkdown, "a fresh session never shows stale content")
	assert.Equal(t, "j2", got.JobID)
	assert.Equal(t, 1, store.Len())
}

func TestOpenKeepsSessionsForOtherChats(t *testing.T) {
	store := NewStore()

	a := store.Open("c1", "j1")
	b := store.Open("c2", "j2")

	_, errA := store.Get(a.ID)
	_, errB := store.Get(b.ID)
	assert.NoError(t, errA)
	assert.NoError(t, errB)
	assert.Equal(t, 2, store.Len())
}

func TestSessionsForChat(t *testing.T) {
	store := NewStore()

	a := store.Open("c1", "j1")
	store.Open("c2", "j2")

	ids := store.SessionsForChat("c1")
	require.Len(t, ids, 1)
	assert.Equal(t, a.ID, ids[0])

	assert.Empty(t, store.SessionsForChat("unknown"))
}

func TestUpdateAfterCloseIsDiscarded(t *testing.T) {
	store := NewStore()
	sess := store.Open("c1", "j1")
	require.NoError(t, store.Close(sess.ID))

	err := store.Update(sess.ID, func(sess *Session) {
		sess.TranslatedMarkdown = "late poll result"
	})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCloseUnknownSession(t *testing.T) {
	store := NewStore()
	assert.ErrorIs(t, store.Close("nope"), ErrSessionNotFound)
}

func TestMergeSuggestionsDedupeAndCap(t *testing.T) {
	store := NewStore()
	sess := store.Open("c1", "j1")

	base := make([]domain.Suggestion, 0, 8)
	for i := 0; i < 8; i++ {
		base = append(base, domain.Suggestion{ID: fmt.Sprintf("e%d", i), Description: "d"})
	}
	require.NoError(t, store.MergeSuggestions(sess.ID, base, 10))

	incoming := []domain.Suggestion{
		{ID: "e0", Description: "dup"},
		{ID: "e7", Description: "dup"},
		{ID: "n1", Description: "new"},
		{ID: "n2", Description: "new"},
		{ID: "n3", Description: "new"},
	}
	require.NoError(t, store.MergeSuggestions(sess.ID, incoming, 10))

	got, _ := store.Get(sess.ID)
	require.Len(t, got.Suggestions, 10)
	assert.Equal(t, "e0", got.Suggestions[0].ID, "existing suggestions keep their position")
	assert.Equal(t, "d", got.Suggestions[0].Description, "duplicates never overwrite existing entries")
	assert.Equal(t, "n2", got.Suggestions[9].ID)
}

func TestRemoveSuggestion(t *testing.T) {
	store := NewStore()
	sess := store.Open("c1", "j1")
	require.NoError(t, store.MergeSuggestions(sess.ID, []domain.Suggestion{
		{ID: "s1", Description: "d"},
		{ID: "s2", Description: "d"},
	}, 10))

	require.NoError(t, store.RemoveSuggestion(sess.ID, "s1"))

	got, _ := store.Get(sess.ID)
	require.Len(t, got.Suggestions, 1)
	assert.Equal(t, "s2", got.Suggestions[0].ID)

	_, err := store.FindSuggestion(sess.ID, "s1")
	assert.ErrorIs(t, err, ErrSuggestionNotFound)
}

func TestEditSuggestedText(t *testing.T) {
	store := NewStore()
	sess := store.Open("c1", "j1")
	require.NoError(t, store.MergeSuggestions(sess.ID, []domain.Suggestion{
		{ID: "s1", SuggestedText: "first draft"},
	}, 10))

	require.NoError(t, store.EditSuggestedText(sess.ID, "s1", "edited"))

	suggestion, err := store.FindSuggestion(sess.ID, "s1")
	require.NoError(t, err)
	assert.Equal(t, "edited", suggestion.SuggestedText)

	assert.ErrorIs(t, store.EditSuggestedText(sess.ID, "missing", "x"), ErrSuggestionNotFound)
	assert.ErrorIs(t, store.EditSuggestedText("missing", "s1", "x"), ErrSessionNotFound)
}
