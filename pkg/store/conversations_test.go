package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folioworks/folio/pkg/auth"
	"github.com/folioworks/folio/pkg/model"
)

func TestPostMessage(t *testing.T) {
	db := NewTestDB(t)
	s := New(db)
	ctx := context.Background()

	alice := seedProfile(t, s, "alice", true)
	bob := seedProfile(t, s, "bob", true)

	corpus := seedCorpus(t, s, alice, "forum", true)
	conv := seedConversation(t, s, alice, corpus.ID, "welcome", true)

	t.Run("anyone who sees the thread may post", func(t *testing.T) {
		msg := &model.Message{ConversationID: conv.ID, Body: "hello"}
		require.NoError(t, s.PostMessage(ctx, bob, msg))
		assert.Equal(t, bob.ProfileID, msg.AuthorID)
		assert.NotZero(t, msg.ID)
	})

	t.Run("anonymous cannot post", func(t *testing.T) {
		err := s.PostMessage(ctx, auth.Anonymous(), &model.Message{ConversationID: conv.ID, Body: "hi"})
		assert.ErrorIs(t, err, model.ErrPermissionDenied)
	})

	t.Run("locked thread rejects with denial", func(t *testing.T) {
		_, err := db.Exec(`UPDATE conversations SET locked = TRUE WHERE id = $1`, conv.ID)
		require.NoError(t, err)

		// The thread resolved, so its existence is known; the rejection
		// is a denial, not a not-found.
		err = s.PostMessage(ctx, bob, &model.Message{ConversationID: conv.ID, Body: "late"})
		assert.ErrorIs(t, err, model.ErrPermissionDenied)
		assert.Contains(t, err.Error(), "conversation is locked")
	})

	t.Run("superuser posts through the lock", func(t *testing.T) {
		msg := &model.Message{ConversationID: conv.ID, Body: "notice"}
		assert.NoError(t, s.PostMessage(ctx, auth.Superuser(1, "root"), msg))
	})

	t.Run("invisible thread reads as not found", func(t *testing.T) {
		hidden := seedConversation(t, s, alice, corpus.ID, "staff only", false)
		err := s.PostMessage(ctx, bob, &model.Message{ConversationID: hidden.ID, Body: "psst"})
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}

func TestGetMessageFollowsConversationVisibility(t *testing.T) {
	db := NewTestDB(t)
	s := New(db)
	ctx := context.Background()

	alice := seedProfile(t, s, "alice", true)
	bob := seedProfile(t, s, "bob", true)

	corpus := seedCorpus(t, s, alice, "forum", true)
	private := seedConversation(t, s, alice, corpus.ID, "private", false)

	msg := &model.Message{ConversationID: private.ID, Body: "secret"}
	require.NoError(t, s.PostMessage(ctx, alice, msg))

	// Messages have no visibility of their own; the parent decides.
	_, err := s.GetMessage(ctx, bob, msg.ID, false)
	assert.ErrorIs(t, err, model.ErrNotFound)

	got, err := s.GetMessage(ctx, alice, msg.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "secret", got.Body)
}

func TestMessagesHiddenWhenConversationDeleted(t *testing.T) {
	db := NewTestDB(t)
	s := New(db)
	ctx := context.Background()

	alice := seedProfile(t, s, "alice", true)
	corpus := seedCorpus(t, s, alice, "forum", true)
	conv := seedConversation(t, s, alice, corpus.ID, "doomed", true)

	msg := &model.Message{ConversationID: conv.ID, Body: "still here?"}
	require.NoError(t, s.PostMessage(ctx, alice, msg))

	_, err := db.Exec(`UPDATE conversations SET deleted_at = CURRENT_TIMESTAMP WHERE id = $1`, conv.ID)
	require.NoError(t, err)

	// Deleting the thread hides its messages, deleted or not, even from
	// the owner on the default path.
	_, err = s.GetMessage(ctx, alice, msg.ID, false)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = s.ListMessages(ctx, alice, conv.ID, false)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestListMessagesOrder(t *testing.T) {
	s := New(NewTestDB(t))
	ctx := context.Background()

	alice := seedProfile(t, s, "alice", true)
	corpus := seedCorpus(t, s, alice, "forum", true)
	conv := seedConversation(t, s, alice, corpus.ID, "thread", true)

	for _, body := range []string{"first", "second", "third"} {
		require.NoError(t, s.PostMessage(ctx, alice, &model.Message{ConversationID: conv.ID, Body: body}))
	}

	out, err := s.ListMessages(ctx, auth.Anonymous(), conv.ID, false)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "first", out[0].Body)
	assert.Equal(t, "second", out[1].Body)
	assert.Equal(t, "third", out[2].Body)
}

func TestListMessagesPinnedFirst(t *testing.T) {
	db := NewTestDB(t)
	s := New(db)
	ctx := context.Background()

	alice := seedProfile(t, s, "alice", true)
	corpus := seedCorpus(t, s, alice, "forum", true)
	conv := seedConversation(t, s, alice, corpus.ID, "thread", true)

	var last *model.Message
	for _, body := range []string{"first", "second", "rules"} {
		last = &model.Message{ConversationID: conv.ID, Body: body}
		require.NoError(t, s.PostMessage(ctx, alice, last))
	}

	_, err := db.Exec(`UPDATE messages SET pinned = TRUE WHERE id = $1`, last.ID)
	require.NoError(t, err)

	out, err := s.ListMessages(ctx, auth.Anonymous(), conv.ID, false)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "rules", out[0].Body)
	assert.True(t, out[0].Pinned)
	assert.Equal(t, "first", out[1].Body)
	assert.Equal(t, "second", out[2].Body)
}

func TestListConversationsPinnedFirst(t *testing.T) {
	db := NewTestDB(t)
	s := New(db)
	ctx := context.Background()

	alice := seedProfile(t, s, "alice", true)
	corpus := seedCorpus(t, s, alice, "forum", true)

	seedConversation(t, s, alice, corpus.ID, "older", true)
	pinned := seedConversation(t, s, alice, corpus.ID, "rules", true)
	seedConversation(t, s, alice, corpus.ID, "newer", true)

	_, err := db.Exec(`UPDATE conversations SET pinned = TRUE WHERE id = $1`, pinned.ID)
	require.NoError(t, err)

	out, err := s.ListConversations(ctx, auth.Anonymous(), corpus.ID, false)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "rules", out[0].Topic)
}
