package visibility

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/folioworks/folio/pkg/auth"
	"github.com/folioworks/folio/pkg/model"
)

func TestArgsPlaceholderOrder(t *testing.T) {
	args := &Args{}

	assert.Equal(t, "$1", args.Add(int64(7)))
	assert.Equal(t, "$2", args.Add("corpus"))
	assert.Equal(t, "$3", args.Add(true))

	assert.Equal(t, []interface{}{int64(7), "corpus", true}, args.Values())
}

func TestMatchAllMatchNone(t *testing.T) {
	args := &Args{}
	assert.Equal(t, "1=1", MatchAll()(args))
	assert.Equal(t, "1=0", MatchNone()(args))
	assert.Empty(t, args.Values())
}

func TestAndComposition(t *testing.T) {
	args := &Args{}

	// Empty conjunction is vacuously true; a single predicate passes
	// through without extra parentheses.
	assert.Equal(t, "1=1", And()(args))
	assert.Equal(t, "a = 1", And(Raw("a = 1"))(args))
	assert.Equal(t, "(a = 1 AND b = 2)", And(Raw("a = 1"), Raw("b = 2"))(args))
}

func TestOrComposition(t *testing.T) {
	args := &Args{}

	assert.Equal(t, "1=0", Or()(args))
	assert.Equal(t, "a = 1", Or(Raw("a = 1"))(args))
	assert.Equal(t, "(a = 1 OR b = 2)", Or(Raw("a = 1"), Raw("b = 2"))(args))
}

func TestCompositionArgumentOrder(t *testing.T) {
	first := func(a *Args) string { return "x = " + a.Add(1) }
	second := func(a *Args) string { return "y = " + a.Add(2) }

	args := &Args{}
	sql := And(first, second)(args)

	assert.Equal(t, "(x = $1 AND y = $2)", sql)
	assert.Equal(t, []interface{}{1, 2}, args.Values())
}

func TestResolverSuperuserMatchesAll(t *testing.T) {
	r := NewResolver()
	sub := auth.Superuser(1, "root")

	entities := []model.EntityType{
		model.EntityProfile,
		model.EntityCorpus,
		model.EntityDocument,
		model.EntityConversation,
		model.EntityMessage,
		model.EntityBadge,
		model.EntityNotification,
	}
	for _, entity := range entities {
		args := &Args{}
		assert.Equal(t, "1=1", r.Visible(sub, entity)(args), "entity %s", entity)
		assert.Empty(t, args.Values())
	}
}

func TestResolverUnknownEntityMatchesNone(t *testing.T) {
	r := NewResolver()
	args := &Args{}
	assert.Equal(t, "1=0", r.Visible(auth.User(1, "alice"), model.EntityType("widget"))(args))
}

func TestResolverAnonymousNotifications(t *testing.T) {
	r := NewResolver()
	args := &Args{}
	assert.Equal(t, "1=0", r.Visible(auth.Anonymous(), model.EntityNotification)(args))
}

func TestResolverNotificationsRecipientOnly(t *testing.T) {
	r := NewResolver()
	args := &Args{}

	sql := r.Visible(auth.User(42, "alice"), model.EntityNotification)(args)

	assert.Equal(t, "notifications.recipient_id = $1", sql)
	assert.Equal(t, []interface{}{int64(42)}, args.Values())
}

func TestResolverProfileDeactivationHasHighestPrecedence(t *testing.T) {
	r := NewResolver()

	// The active check must be conjoined outside the ownership/public/grant
	// disjunction, so no branch can resurrect a deactivated profile.
	args := &Args{}
	sql := r.Visible(auth.User(1, "alice"), model.EntityProfile)(args)
	assert.True(t, strings.HasSuffix(sql, "AND profiles.deactivated = FALSE)"), "got %q", sql)

	args = &Args{}
	sql = r.Visible(auth.Anonymous(), model.EntityProfile)(args)
	assert.Equal(t, "(profiles.is_public = TRUE AND profiles.deactivated = FALSE)", sql)
}

func TestResolverAnonymousCorpusRequiresActiveOwner(t *testing.T) {
	r := NewResolver()
	args := &Args{}

	sql := r.Visible(auth.Anonymous(), model.EntityCorpus)(args)

	assert.Contains(t, sql, "corpora.is_public = TRUE")
	assert.Contains(t, sql, "p.deactivated = FALSE")
}

func TestResolverMessageDelegatesToConversation(t *testing.T) {
	r := NewResolver()
	args := &Args{}

	sql := r.Visible(auth.User(3, "bob"), model.EntityMessage)(args)

	// Messages have no visibility of their own: the predicate is an EXISTS
	// over the parent conversation, which must also not be soft-deleted.
	assert.Contains(t, sql, "cv.id = messages.conversation_id")
	assert.Contains(t, sql, "cv.deleted_at IS NULL")
	assert.Contains(t, sql, "cv.creator_id = $1")
}
