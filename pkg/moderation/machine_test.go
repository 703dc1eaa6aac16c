package moderation

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folioworks/folio/pkg/auth"
	"github.com/folioworks/folio/pkg/consistency"
	"github.com/folioworks/folio/pkg/grants"
	"github.com/folioworks/folio/pkg/model"
	"github.com/folioworks/folio/pkg/notify"
	"github.com/folioworks/folio/pkg/store"
)

type testEnv struct {
	db      *sql.DB
	store   *store.Store
	grants  *grants.Store
	engine  *consistency.Engine
	machine *Machine
	notify  *notify.Recorder

	alice auth.Subject // corpus creator
	bob   auth.Subject // regular contributor

	corpus *model.Corpus
	conv   *model.Conversation
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db := store.NewTestDB(t)
	s := store.New(db)
	engine := consistency.NewEngine(db, nil)
	recorder := notify.NewRecorder(db, nil)

	env := &testEnv{
		db:      db,
		store:   s,
		grants:  grants.NewStore(db),
		engine:  engine,
		machine: NewMachine(db, engine, recorder, nil, nil),
		notify:  recorder,
	}

	alice := &model.Profile{Username: "alice", IsPublic: true}
	require.NoError(t, s.CreateProfile(ctx, alice))
	env.alice = auth.User(alice.ID, alice.Username)

	bob := &model.Profile{Username: "bob", IsPublic: true}
	require.NoError(t, s.CreateProfile(ctx, bob))
	env.bob = auth.User(bob.ID, bob.Username)

	env.corpus = &model.Corpus{Name: "forum", IsPublic: true}
	require.NoError(t, s.CreateCorpus(ctx, env.alice, env.corpus))

	env.conv = &model.Conversation{CorpusID: env.corpus.ID, Topic: "thread", IsPublic: true}
	require.NoError(t, s.CreateConversation(ctx, env.alice, env.conv))

	return env
}

func (env *testEnv) conversation(t *testing.T) *model.Conversation {
	t.Helper()
	c, err := env.store.GetConversation(context.Background(), auth.Superuser(0, "root"), env.conv.ID, true)
	require.NoError(t, err)
	return c
}

func TestApplyLockLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec, err := env.machine.Apply(ctx, env.alice, model.ActionLock, model.EntityConversation, env.conv.ID, "heated")
	require.NoError(t, err)
	assert.Equal(t, model.ActionLock, rec.Action)
	assert.Equal(t, env.alice.ProfileID, rec.ActorID)
	assert.NotEmpty(t, rec.RequestID)
	assert.True(t, env.conversation(t).Locked)

	// The lock takes effect on posting.
	err = env.store.PostMessage(ctx, env.bob, &model.Message{ConversationID: env.conv.ID, Body: "hi"})
	assert.ErrorIs(t, err, model.ErrPermissionDenied)

	_, err = env.machine.Apply(ctx, env.alice, model.ActionUnlock, model.EntityConversation, env.conv.ID, "cooled down")
	require.NoError(t, err)
	assert.False(t, env.conversation(t).Locked)

	_, err = env.machine.Apply(ctx, env.alice, model.ActionLock, model.EntityConversation, env.conv.ID, "again")
	require.NoError(t, err)

	// The trail records intent, newest first; nothing is collapsed.
	trail, err := env.machine.Records().ListForTarget(ctx, model.EntityConversation, env.conv.ID)
	require.NoError(t, err)
	require.Len(t, trail, 3)
	assert.Equal(t, model.ActionLock, trail[0].Action)
	assert.Equal(t, model.ActionUnlock, trail[1].Action)
	assert.Equal(t, model.ActionLock, trail[2].Action)
}

func TestApplyReapplyCurrentStateStillAudited(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.machine.Apply(ctx, env.alice, model.ActionPin, model.EntityConversation, env.conv.ID, "")
	require.NoError(t, err)
	_, err = env.machine.Apply(ctx, env.alice, model.ActionPin, model.EntityConversation, env.conv.ID, "")
	require.NoError(t, err)

	assert.True(t, env.conversation(t).Pinned)

	trail, err := env.machine.Records().ListForTarget(ctx, model.EntityConversation, env.conv.ID)
	require.NoError(t, err)
	assert.Len(t, trail, 2)
}

func TestApplyLockAndPinMessages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	msg := &model.Message{ConversationID: env.conv.ID, Body: "announcement"}
	require.NoError(t, env.store.PostMessage(ctx, env.bob, msg))

	_, err := env.machine.Apply(ctx, env.alice, model.ActionPin, model.EntityMessage, msg.ID, "keep on top")
	require.NoError(t, err)
	_, err = env.machine.Apply(ctx, env.alice, model.ActionLock, model.EntityMessage, msg.ID, "final wording")
	require.NoError(t, err)

	root := auth.Superuser(0, "root")
	got, err := env.store.GetMessage(ctx, root, msg.ID, false)
	require.NoError(t, err)
	assert.True(t, got.Pinned)
	assert.True(t, got.Locked)

	// The axes are independent; unpinning leaves the lock in place.
	_, err = env.machine.Apply(ctx, env.alice, model.ActionUnpin, model.EntityMessage, msg.ID, "")
	require.NoError(t, err)
	got, err = env.store.GetMessage(ctx, root, msg.ID, false)
	require.NoError(t, err)
	assert.False(t, got.Pinned)
	assert.True(t, got.Locked)

	trail, err := env.machine.Records().ListForTarget(ctx, model.EntityMessage, msg.ID)
	require.NoError(t, err)
	assert.Len(t, trail, 3)
}

func TestApplyDeniedLeavesNoTrace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Bob can see the thread but holds no capability over it.
	_, err := env.machine.Apply(ctx, env.bob, model.ActionLock, model.EntityConversation, env.conv.ID, "")
	assert.ErrorIs(t, err, model.ErrPermissionDenied)

	assert.False(t, env.conversation(t).Locked)
	trail, err := env.machine.Records().ListForTarget(ctx, model.EntityConversation, env.conv.ID)
	require.NoError(t, err)
	assert.Empty(t, trail)

	_, err = env.machine.Apply(ctx, auth.Anonymous(), model.ActionLock, model.EntityConversation, env.conv.ID, "")
	assert.ErrorIs(t, err, model.ErrPermissionDenied)
}

func TestApplyCapabilityGrants(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	bobID := env.bob.ProfileID
	require.NoError(t, env.grants.CreateGrant(ctx, &grants.Grant{
		SubjectID:  &bobID,
		ObjectType: model.EntityCorpus,
		ObjectID:   env.corpus.ID,
		Capability: grants.CapabilityUpdate,
	}))

	// UPDATE on the corpus covers lock, but not soft delete.
	_, err := env.machine.Apply(ctx, env.bob, model.ActionLock, model.EntityConversation, env.conv.ID, "")
	assert.NoError(t, err)

	_, err = env.machine.Apply(ctx, env.bob, model.ActionSoftDelete, model.EntityConversation, env.conv.ID, "")
	assert.ErrorIs(t, err, model.ErrPermissionDenied)
}

func TestApplyActionTargetMatrix(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		action model.ModerationAction
		target model.EntityType
	}{
		{"lock does not cover documents", model.ActionLock, model.EntityDocument},
		{"pin does not cover corpora", model.ActionPin, model.EntityCorpus},
		{"soft delete does not cover profiles", model.ActionSoftDelete, model.EntityProfile},
		{"unknown action", model.ModerationAction("purge"), model.EntityConversation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.machine.Apply(ctx, env.alice, tt.action, tt.target, env.conv.ID, "")
			assert.ErrorIs(t, err, model.ErrValidation)
		})
	}
}

func TestApplyInvisibleTargetReadsAsNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	hidden := &model.Corpus{Name: "hidden"}
	require.NoError(t, env.store.CreateCorpus(ctx, env.bob, hidden))
	conv := &model.Conversation{CorpusID: hidden.ID, Topic: "private"}
	require.NoError(t, env.store.CreateConversation(ctx, env.bob, conv))

	_, err := env.machine.Apply(ctx, env.alice, model.ActionLock, model.EntityConversation, conv.ID, "")
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, miss := env.machine.Apply(ctx, env.alice, model.ActionLock, model.EntityConversation, 99999, "")
	assert.Equal(t, err, miss)
}

func TestSoftDeleteAndRestoreRecomputeReputation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	msg := &model.Message{ConversationID: env.conv.ID, Body: "useful"}
	require.NoError(t, env.store.PostMessage(ctx, env.bob, msg))
	_, err := env.engine.CastVote(ctx, env.alice, model.EntityMessage, msg.ID, model.Upvote)
	require.NoError(t, err)

	rep, err := env.engine.Reputation(ctx, env.bob.ProfileID, nil)
	require.NoError(t, err)
	require.Equal(t, int64(1), rep)

	root := auth.Superuser(0, "root")
	_, err = env.machine.Apply(ctx, root, model.ActionSoftDelete, model.EntityMessage, msg.ID, "off topic")
	require.NoError(t, err)

	// The deleted message's votes leave the aggregate in the same
	// transaction as the state change.
	rep, err = env.engine.Reputation(ctx, env.bob.ProfileID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rep)

	scoped, err := env.engine.Reputation(ctx, env.bob.ProfileID, &env.corpus.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), scoped)

	// Restore finds the soft-deleted row and brings the votes back.
	_, err = env.machine.Apply(ctx, root, model.ActionRestore, model.EntityMessage, msg.ID, "appeal upheld")
	require.NoError(t, err)

	rep, err = env.engine.Reputation(ctx, env.bob.ProfileID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rep)
}

func TestModerationNotifiesCreator(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	msg := &model.Message{ConversationID: env.conv.ID, Body: "spam?"}
	require.NoError(t, env.store.PostMessage(ctx, env.bob, msg))

	rec, err := env.machine.Apply(ctx, env.alice, model.ActionSoftDelete, model.EntityMessage, msg.ID, "spam")
	require.NoError(t, err)

	out, err := env.notify.ListForRecipient(ctx, env.bob, 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, model.NotifyModeration, out[0].Kind)
	assert.Equal(t, rec.RequestID, out[0].RequestID)
	require.NotNil(t, out[0].ActorID)
	assert.Equal(t, env.alice.ProfileID, *out[0].ActorID)
}

func TestModerationSelfActionNotNotified(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Alice moderates her own conversation; she is not told about it.
	_, err := env.machine.Apply(ctx, env.alice, model.ActionLock, model.EntityConversation, env.conv.ID, "")
	require.NoError(t, err)

	out, err := env.notify.ListForRecipient(ctx, env.alice, 10)
	require.NoError(t, err)
	assert.Empty(t, out)
}
