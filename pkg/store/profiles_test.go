package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folioworks/folio/pkg/auth"
	"github.com/folioworks/folio/pkg/grants"
	"github.com/folioworks/folio/pkg/model"
)

func TestCreateProfileDuplicateUsername(t *testing.T) {
	s := New(NewTestDB(t))
	ctx := context.Background()

	first := &model.Profile{Username: "alice"}
	require.NoError(t, s.CreateProfile(ctx, first))
	require.NotZero(t, first.ID)

	dup := &model.Profile{Username: "alice"}
	err := s.CreateProfile(ctx, dup)
	assert.ErrorIs(t, err, model.ErrConflict)
}

func TestGetProfileVisibility(t *testing.T) {
	s := New(NewTestDB(t))
	ctx := context.Background()

	alice := seedProfile(t, s, "alice", false)
	bob := seedProfile(t, s, "bob", true)

	// Private profiles resolve for themselves and superusers only;
	// everyone else gets not found, never forbidden.
	t.Run("owner sees own private profile", func(t *testing.T) {
		p, err := s.GetProfile(ctx, alice, alice.ProfileID)
		require.NoError(t, err)
		assert.Equal(t, "alice", p.Username)
	})

	t.Run("stranger cannot see private profile", func(t *testing.T) {
		_, err := s.GetProfile(ctx, bob, alice.ProfileID)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("anonymous sees public profile only", func(t *testing.T) {
		p, err := s.GetProfile(ctx, auth.Anonymous(), bob.ProfileID)
		require.NoError(t, err)
		assert.Equal(t, "bob", p.Username)

		_, err = s.GetProfile(ctx, auth.Anonymous(), alice.ProfileID)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("superuser sees everything", func(t *testing.T) {
		_, err := s.GetProfile(ctx, auth.Superuser(0, "root"), alice.ProfileID)
		assert.NoError(t, err)
	})
}

func TestGetProfileForbiddenIndistinguishableFromMissing(t *testing.T) {
	s := New(NewTestDB(t))
	ctx := context.Background()

	alice := seedProfile(t, s, "alice", false)
	bob := seedProfile(t, s, "bob", true)

	forbiddenErr := func() error {
		_, err := s.GetProfile(ctx, bob, alice.ProfileID)
		return err
	}()
	missingErr := func() error {
		_, err := s.GetProfile(ctx, bob, 99999)
		return err
	}()

	// The two failure modes must be the same sentinel, or identifiers
	// could be enumerated by probing.
	assert.Equal(t, forbiddenErr, missingErr)
	assert.ErrorIs(t, forbiddenErr, model.ErrNotFound)
}

func TestDeactivatedProfileInvisibleToAll(t *testing.T) {
	s := New(NewTestDB(t))
	ctx := context.Background()

	alice := seedProfile(t, s, "alice", true)
	bob := seedProfile(t, s, "bob", true)
	require.NoError(t, s.DeactivateProfile(ctx, alice, alice.ProfileID))

	// Public flag does not override deactivation, not even for the
	// profile itself.
	_, err := s.GetProfile(ctx, bob, alice.ProfileID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = s.GetProfile(ctx, alice, alice.ProfileID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = s.GetProfile(ctx, auth.Anonymous(), alice.ProfileID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	// Superusers bypass visibility entirely.
	_, err = s.GetProfile(ctx, auth.Superuser(0, "root"), alice.ProfileID)
	assert.NoError(t, err)
}

func TestDeactivateProfileAuthorization(t *testing.T) {
	s := New(NewTestDB(t))
	ctx := context.Background()

	alice := seedProfile(t, s, "alice", true)
	bob := seedProfile(t, s, "bob", true)

	// The target's existence is known here, so denial is explicit.
	err := s.DeactivateProfile(ctx, bob, alice.ProfileID)
	assert.ErrorIs(t, err, model.ErrPermissionDenied)

	err = s.DeactivateProfile(ctx, auth.Superuser(0, "root"), 99999)
	assert.ErrorIs(t, err, model.ErrNotFound)

	assert.NoError(t, s.DeactivateProfile(ctx, alice, alice.ProfileID))
}

func TestListProfilesFiltersAndOrders(t *testing.T) {
	s := New(NewTestDB(t))
	ctx := context.Background()

	seedProfile(t, s, "carol", true)
	alice := seedProfile(t, s, "alice", true)
	bob := seedProfile(t, s, "bob", false)

	out, err := s.ListProfiles(ctx, auth.Anonymous())
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "alice", out[0].Username)
	assert.Equal(t, "carol", out[1].Username)

	// An authenticated subject additionally sees itself.
	out, err = s.ListProfiles(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, out, 2)

	out, err = s.ListProfiles(ctx, bob)
	require.NoError(t, err)
	assert.Len(t, out, 3)
}

func TestSharedCorpusPrivilegeRevealsProfile(t *testing.T) {
	db := NewTestDB(t)
	s := New(db)
	gs := grants.NewStore(db)
	ctx := context.Background()

	admin := seedProfile(t, s, "admin", false)
	member := seedProfile(t, s, "member", false)
	outsider := seedProfile(t, s, "outsider", false)

	corpus := seedCorpus(t, s, admin, "workspace", false)

	// Attach the target profile to the corpus with an explicit grant.
	memberID := member.ProfileID
	require.NoError(t, gs.CreateGrant(ctx, &grants.Grant{
		SubjectID:  &memberID,
		ObjectType: model.EntityCorpus,
		ObjectID:   corpus.ID,
		Capability: grants.CapabilityRead,
	}))

	// The corpus creator holds privilege over attached profiles.
	p, err := s.GetProfile(ctx, admin, member.ProfileID)
	require.NoError(t, err)
	assert.Equal(t, "member", p.Username)

	// Read-only sharing runs the other way: the member can see content
	// but does not gain privilege over the admin's private profile.
	_, err = s.GetProfile(ctx, member, admin.ProfileID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	// A profile with no tie to the corpus stays invisible.
	_, err = s.GetProfile(ctx, admin, outsider.ProfileID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}
