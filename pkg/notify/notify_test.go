package notify_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folioworks/folio/pkg/auth"
	"github.com/folioworks/folio/pkg/model"
	"github.com/folioworks/folio/pkg/notify"
	"github.com/folioworks/folio/pkg/store"
)

func TestNotifyRequiresRecipient(t *testing.T) {
	r := notify.NewRecorder(store.NewTestDB(t), nil)

	err := r.Notify(context.Background(), &model.Notification{Message: "to nobody"})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestNotifyAndList(t *testing.T) {
	r := notify.NewRecorder(store.NewTestDB(t), nil)
	ctx := context.Background()

	actor := int64(2)
	for _, msg := range []string{"first", "second", "third"} {
		n := &model.Notification{
			RecipientID: 1,
			Kind:        model.NotifyReply,
			ActorID:     &actor,
			TargetType:  model.EntityMessage,
			TargetID:    10,
			Message:     msg,
		}
		require.NoError(t, r.Notify(ctx, n))
		require.NotZero(t, n.ID)
	}
	require.NoError(t, r.Notify(ctx, &model.Notification{
		RecipientID: 2,
		Kind:        model.NotifyMention,
		Message:     "for someone else",
	}))

	alice := auth.User(1, "alice")

	out, err := r.ListForRecipient(ctx, alice, 10)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "third", out[0].Message)
	assert.Equal(t, "first", out[2].Message)
	require.NotNil(t, out[0].ActorID)
	assert.Equal(t, actor, *out[0].ActorID)

	// The limit truncates from the newest end.
	out, err = r.ListForRecipient(ctx, alice, 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "third", out[0].Message)

	// Notifications are recipient-private.
	out, err = r.ListForRecipient(ctx, auth.User(3, "carol"), 10)
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = r.ListForRecipient(ctx, auth.Anonymous(), 10)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestMarkRead(t *testing.T) {
	r := notify.NewRecorder(store.NewTestDB(t), nil)
	ctx := context.Background()

	n := &model.Notification{RecipientID: 1, Kind: model.NotifyAward, Message: "congrats"}
	require.NoError(t, r.Notify(ctx, n))

	alice := auth.User(1, "alice")
	bob := auth.User(2, "bob")

	// A foreign notification reads as not found, same as a missing one.
	err := r.MarkRead(ctx, bob, n.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Equal(t, err, r.MarkRead(ctx, bob, 99999))
	assert.ErrorIs(t, r.MarkRead(ctx, auth.Anonymous(), n.ID), model.ErrNotFound)

	require.NoError(t, r.MarkRead(ctx, alice, n.ID))

	out, err := r.ListForRecipient(ctx, alice, 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.NotNil(t, out[0].ReadAt)

	// Already-read rows are not re-stamped.
	err = r.MarkRead(ctx, alice, n.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestNoopDiscards(t *testing.T) {
	var n notify.Noop
	assert.NoError(t, n.Notify(context.Background(), &model.Notification{}))
}
