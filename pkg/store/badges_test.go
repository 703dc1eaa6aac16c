package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folioworks/folio/pkg/auth"
	"github.com/folioworks/folio/pkg/model"
)

func TestCreateBadge(t *testing.T) {
	s := New(NewTestDB(t))
	ctx := context.Background()

	alice := seedProfile(t, s, "alice", true)
	bob := seedProfile(t, s, "bob", true)
	private := seedCorpus(t, s, alice, "private", false)

	t.Run("global badge", func(t *testing.T) {
		b := &model.Badge{Name: "Founder", IsPublic: true}
		require.NoError(t, s.CreateBadge(ctx, alice, b))
		assert.NotZero(t, b.ID)
		assert.Equal(t, alice.ProfileID, b.CreatorID)
	})

	t.Run("duplicate name conflicts", func(t *testing.T) {
		err := s.CreateBadge(ctx, alice, &model.Badge{Name: "Founder", IsPublic: true})
		assert.ErrorIs(t, err, model.ErrConflict)
	})

	t.Run("auto award requires criteria", func(t *testing.T) {
		err := s.CreateBadge(ctx, alice, &model.Badge{Name: "Chatty", AutoAward: true})
		assert.ErrorIs(t, err, model.ErrValidation)
	})

	t.Run("corpus scoped requires contribution", func(t *testing.T) {
		err := s.CreateBadge(ctx, bob, &model.Badge{Name: "Helper", CorpusID: &private.ID})
		assert.ErrorIs(t, err, model.ErrNotFound)

		b := &model.Badge{Name: "Helper", CorpusID: &private.ID, IsPublic: true}
		assert.NoError(t, s.CreateBadge(ctx, alice, b))
	})

	t.Run("anonymous cannot create", func(t *testing.T) {
		err := s.CreateBadge(ctx, auth.Anonymous(), &model.Badge{Name: "Ghost"})
		assert.ErrorIs(t, err, model.ErrPermissionDenied)
	})
}

func TestGetBadgeContainerGating(t *testing.T) {
	s := New(NewTestDB(t))
	ctx := context.Background()

	alice := seedProfile(t, s, "alice", true)
	bob := seedProfile(t, s, "bob", true)
	private := seedCorpus(t, s, alice, "private", false)

	scoped := &model.Badge{Name: "Insider", CorpusID: &private.ID, IsPublic: true}
	require.NoError(t, s.CreateBadge(ctx, alice, scoped))

	global := &model.Badge{Name: "Wanderer", IsPublic: true}
	require.NoError(t, s.CreateBadge(ctx, alice, global))

	// A public badge scoped to an invisible corpus stays hidden; a global
	// public badge has no container to gate it.
	_, err := s.GetBadge(ctx, bob, scoped.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	got, err := s.GetBadge(ctx, bob, global.ID)
	require.NoError(t, err)
	assert.Equal(t, "Wanderer", got.Name)

	got, err = s.GetBadge(ctx, alice, scoped.ID)
	require.NoError(t, err)
	assert.Equal(t, "Insider", got.Name)
}

func TestBadgeCriteriaConfigRoundTrip(t *testing.T) {
	s := New(NewTestDB(t))
	ctx := context.Background()

	alice := seedProfile(t, s, "alice", true)

	b := &model.Badge{
		Name:         "Prolific",
		IsPublic:     true,
		AutoAward:    true,
		CriteriaType: "message_count",
		CriteriaConfig: map[string]interface{}{
			"value": float64(10),
		},
	}
	require.NoError(t, s.CreateBadge(ctx, alice, b))

	got, err := s.GetBadge(ctx, alice, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "message_count", got.CriteriaType)
	assert.Equal(t, float64(10), got.CriteriaConfig["value"])
}

func TestListAutoAwardBadges(t *testing.T) {
	s := New(NewTestDB(t))
	ctx := context.Background()

	alice := seedProfile(t, s, "alice", true)

	require.NoError(t, s.CreateBadge(ctx, alice, &model.Badge{Name: "Manual", IsPublic: true}))
	require.NoError(t, s.CreateBadge(ctx, alice, &model.Badge{
		Name:         "Auto",
		IsPublic:     true,
		AutoAward:    true,
		CriteriaType: "first_document",
	}))

	out, err := s.ListAutoAwardBadges(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Auto", out[0].Name)
	assert.True(t, out[0].AutoAward)
}
