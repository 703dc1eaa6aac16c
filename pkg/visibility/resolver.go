package visibility

import (
	"fmt"

	"github.com/folioworks/folio/pkg/auth"
	"github.com/folioworks/folio/pkg/model"
)

// Resolver computes, per (subject, entity type) pair, the predicate
// selecting the subset of rows the subject may observe. Rules compose in
// a fixed order:
//
//  1. superuser: match-all
//  2. anonymous: public rows only, owned by active profiles where the
//     entity has an owner
//  3. authenticated: OR(owner, public, explicit grant, derived
//     shared-corpus privilege), with container READ required for
//     container-scoped entities
//  4. deactivated profiles are excluded last, as an AND with the highest
//     precedence; a public flag does not override it
//
// Soft-delete exclusion is not part of the resolver: the repositories
// apply it through their explicit includeDeleted parameter so the default
// path and the "include deleted" path share one code path.
type Resolver struct{}

// NewResolver creates a visibility resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Visible returns the predicate for the subject over the entity type. The
// predicate references the entity's canonical table name, so it composes
// with queries selecting FROM that table.
func (r *Resolver) Visible(sub auth.Subject, entity model.EntityType) Predicate {
	if sub.IsSuperuser() {
		return MatchAll()
	}

	switch entity {
	case model.EntityProfile:
		return r.visibleProfiles(sub)
	case model.EntityCorpus:
		return r.visibleCorpora(sub)
	case model.EntityDocument:
		return r.visibleDocuments(sub)
	case model.EntityConversation:
		return r.visibleConversations(sub)
	case model.EntityMessage:
		return r.visibleMessages(sub)
	case model.EntityBadge:
		return r.visibleBadges(sub)
	case model.EntityNotification:
		return r.visibleNotifications(sub)
	default:
		return MatchNone()
	}
}

func (r *Resolver) visibleProfiles(sub auth.Subject) Predicate {
	active := Raw("profiles.deactivated = FALSE")
	if sub.IsAnonymous() {
		return And(Raw("profiles.is_public = TRUE"), active)
	}

	self := func(a *Args) string {
		return fmt.Sprintf("profiles.id = %s", a.Add(sub.ProfileID))
	}

	return And(
		Or(
			self,
			Raw("profiles.is_public = TRUE"),
			grantOnEntity(model.EntityProfile, "profiles.id", sub.ProfileID),
			sharedCorpusPrivilege(sub.ProfileID),
		),
		// Highest precedence: deactivated accounts never resolve, even
		// for themselves or their grantees.
		active,
	)
}

func (r *Resolver) visibleCorpora(sub auth.Subject) Predicate {
	if sub.IsAnonymous() {
		return And(
			Raw("corpora.is_public = TRUE"),
			ownerActive("corpora.creator_id"),
		)
	}

	owner := func(a *Args) string {
		return fmt.Sprintf("corpora.creator_id = %s", a.Add(sub.ProfileID))
	}

	return Or(
		owner,
		Raw("corpora.is_public = TRUE"),
		grantOnEntity(model.EntityCorpus, "corpora.id", sub.ProfileID),
	)
}

func (r *Resolver) visibleDocuments(sub auth.Subject) Predicate {
	container := corpusReadable(sub, "documents.corpus_id")

	if sub.IsAnonymous() {
		return And(Raw("documents.is_public = TRUE"), container)
	}

	owner := func(a *Args) string {
		return fmt.Sprintf("documents.creator_id = %s", a.Add(sub.ProfileID))
	}

	// Container READ is required in addition to the document's own rule:
	// a document granted individually must not leak out of an invisible
	// corpus.
	return And(
		Or(
			owner,
			Raw("documents.is_public = TRUE"),
			grantOnEntity(model.EntityDocument, "documents.id", sub.ProfileID),
		),
		container,
	)
}

func (r *Resolver) visibleConversations(sub auth.Subject) Predicate {
	container := corpusReadable(sub, "conversations.corpus_id")

	if sub.IsAnonymous() {
		return And(Raw("conversations.is_public = TRUE"), container)
	}

	owner := func(a *Args) string {
		return fmt.Sprintf("conversations.creator_id = %s", a.Add(sub.ProfileID))
	}

	return And(
		Or(
			owner,
			Raw("conversations.is_public = TRUE"),
			grantOnEntity(model.EntityConversation, "conversations.id", sub.ProfileID),
		),
		container,
	)
}

func (r *Resolver) visibleMessages(sub auth.Subject) Predicate {
	// A message is visible exactly when its parent conversation is. The
	// conversation's own soft-delete state still gates the thread: a
	// deleted conversation hides its messages on the default path.
	conv := r.visibleConversationAlias(sub, "cv")

	return func(a *Args) string {
		return fmt.Sprintf(
			"EXISTS (SELECT 1 FROM conversations cv WHERE cv.id = messages.conversation_id AND cv.deleted_at IS NULL AND %s)",
			conv(a),
		)
	}
}

// visibleConversationAlias renders the conversation rule against an
// aliased conversations table, for use inside EXISTS subqueries.
func (r *Resolver) visibleConversationAlias(sub auth.Subject, alias string) Predicate {
	container := corpusReadable(sub, alias+".corpus_id")

	if sub.IsAnonymous() {
		return And(Raw(alias+".is_public = TRUE"), container)
	}

	owner := func(a *Args) string {
		return fmt.Sprintf("%s.creator_id = %s", alias, a.Add(sub.ProfileID))
	}

	return And(
		Or(
			owner,
			Raw(alias+".is_public = TRUE"),
			grantOnEntity(model.EntityConversation, alias+".id", sub.ProfileID),
		),
		container,
	)
}

func (r *Resolver) visibleBadges(sub auth.Subject) Predicate {
	// Corpus-scoped badges require container READ on top of the badge's
	// own rule; global badges have no container.
	container := Or(
		Raw("badges.corpus_id IS NULL"),
		corpusReadable(sub, "badges.corpus_id"),
	)

	if sub.IsAnonymous() {
		return And(Raw("badges.is_public = TRUE"), container)
	}

	owner := func(a *Args) string {
		return fmt.Sprintf("badges.creator_id = %s", a.Add(sub.ProfileID))
	}

	return And(
		Or(
			owner,
			Raw("badges.is_public = TRUE"),
			grantOnEntity(model.EntityBadge, "badges.id", sub.ProfileID),
		),
		container,
	)
}

func (r *Resolver) visibleNotifications(sub auth.Subject) Predicate {
	if sub.IsAnonymous() {
		return MatchNone()
	}
	return func(a *Args) string {
		return fmt.Sprintf("notifications.recipient_id = %s", a.Add(sub.ProfileID))
	}
}

// grantOnEntity matches rows the profile holds any explicit grant on,
// directly or through a group. Any capability satisfies READ visibility;
// READ is the weakest capability.
func grantOnEntity(objectType model.EntityType, idColumn string, profileID int64) Predicate {
	return func(a *Args) string {
		return fmt.Sprintf(
			"EXISTS (SELECT 1 FROM grants g WHERE g.object_type = %s AND g.object_id = %s AND (g.subject_id = %s OR g.group_id IN (SELECT gm.group_id FROM group_members gm WHERE gm.profile_id = %s)))",
			a.Add(string(objectType)), idColumn, a.Add(profileID), a.Add(profileID),
		)
	}
}

// ownerActive matches rows whose owning profile has not been
// deactivated.
func ownerActive(ownerIDColumn string) Predicate {
	return Raw(fmt.Sprintf(
		"EXISTS (SELECT 1 FROM profiles p WHERE p.id = %s AND p.deactivated = FALSE)",
		ownerIDColumn,
	))
}

// corpusReadable matches rows whose corpus (referenced by corpusIDColumn)
// the subject may read. Soft-deleted corpora are never readable through a
// child entity.
func corpusReadable(sub auth.Subject, corpusIDColumn string) Predicate {
	if sub.IsSuperuser() {
		return MatchAll()
	}

	if sub.IsAnonymous() {
		return func(a *Args) string {
			return fmt.Sprintf(
				"EXISTS (SELECT 1 FROM corpora c WHERE c.id = %s AND c.deleted_at IS NULL AND c.is_public = TRUE AND EXISTS (SELECT 1 FROM profiles p WHERE p.id = c.creator_id AND p.deactivated = FALSE))",
				corpusIDColumn,
			)
		}
	}

	profileID := sub.ProfileID
	return func(a *Args) string {
		return fmt.Sprintf(
			"EXISTS (SELECT 1 FROM corpora c WHERE c.id = %s AND c.deleted_at IS NULL AND (c.creator_id = %s OR c.is_public = TRUE OR EXISTS (SELECT 1 FROM grants g WHERE g.object_type = %s AND g.object_id = c.id AND (g.subject_id = %s OR g.group_id IN (SELECT gm.group_id FROM group_members gm WHERE gm.profile_id = %s)))))",
			corpusIDColumn, a.Add(profileID), a.Add(string(model.EntityCorpus)), a.Add(profileID), a.Add(profileID),
		)
	}
}

// sharedCorpusPrivilege derives "privileged over this profile" from
// shared-corpus membership: the subject must hold a capability strictly
// greater than READ on (or be the creator of) a corpus the target profile
// is explicitly attached to. Read-only sharing is not enough, and a
// merely public corpus does not attach a profile; only creatorship or an
// explicit grant does.
func sharedCorpusPrivilege(profileID int64) Predicate {
	return func(a *Args) string {
		subjectSide := fmt.Sprintf(
			"(c.creator_id = %s OR EXISTS (SELECT 1 FROM grants g WHERE g.object_type = %s AND g.object_id = c.id AND g.capability IN ('create', 'update', 'delete') AND (g.subject_id = %s OR g.group_id IN (SELECT gm.group_id FROM group_members gm WHERE gm.profile_id = %s))))",
			a.Add(profileID), a.Add(string(model.EntityCorpus)), a.Add(profileID), a.Add(profileID),
		)
		targetSide := fmt.Sprintf(
			"(c.creator_id = profiles.id OR EXISTS (SELECT 1 FROM grants g2 WHERE g2.object_type = %s AND g2.object_id = c.id AND (g2.subject_id = profiles.id OR g2.group_id IN (SELECT gm2.group_id FROM group_members gm2 WHERE gm2.profile_id = profiles.id))))",
			a.Add(string(model.EntityCorpus)),
		)
		return fmt.Sprintf(
			"EXISTS (SELECT 1 FROM corpora c WHERE c.deleted_at IS NULL AND %s AND %s)",
			subjectSide, targetSide,
		)
	}
}
