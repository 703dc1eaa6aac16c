package model

import (
	"time"
)

// EntityType identifies a visible entity kind. Every entity type routes
// point lookups through the safe lookup gateway.
type EntityType string

const (
	EntityProfile      EntityType = "profile"
	EntityCorpus       EntityType = "corpus"
	EntityDocument     EntityType = "document"
	EntityConversation EntityType = "conversation"
	EntityMessage      EntityType = "message"
	EntityBadge        EntityType = "badge"
	EntityNotification EntityType = "notification"
)

// Profile is a user account. Deactivated profiles are excluded from
// visibility regardless of any grant or public flag.
type Profile struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Bio         string    `json:"bio,omitempty"`
	IsPublic    bool      `json:"is_public"`
	Deactivated bool      `json:"deactivated"`
	Reputation  int64     `json:"reputation"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Corpus is the container entity: documents, conversations and scoped
// badges all hang off a corpus.
type Corpus struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Description string     `json:"description,omitempty"`
	CreatorID   int64      `json:"creator_id"`
	IsPublic    bool       `json:"is_public"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Document is a versionless document within a corpus. The vote counters
// are denormalized aggregates over the votes table and are recomputed
// from scratch on every vote mutation.
type Document struct {
	ID            int64      `json:"id"`
	CorpusID      int64      `json:"corpus_id"`
	CreatorID     int64      `json:"creator_id"`
	Title         string     `json:"title"`
	Body          string     `json:"body,omitempty"`
	IsPublic      bool       `json:"is_public"`
	UpvoteCount   int64      `json:"upvote_count"`
	DownvoteCount int64      `json:"downvote_count"`
	VoteScore     int64      `json:"vote_score"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Conversation is a discussion thread within a corpus. Locked, pinned and
// soft-deleted are three independent axes.
type Conversation struct {
	ID        int64      `json:"id"`
	CorpusID  int64      `json:"corpus_id"`
	CreatorID int64      `json:"creator_id"`
	Topic     string     `json:"topic"`
	IsPublic  bool       `json:"is_public"`
	Locked    bool       `json:"locked"`
	Pinned    bool       `json:"pinned"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Message is a single post in a conversation. Like threads, messages
// carry locked, pinned and soft-deleted as three independent axes.
type Message struct {
	ID             int64      `json:"id"`
	ConversationID int64      `json:"conversation_id"`
	AuthorID       int64      `json:"author_id"`
	Body           string     `json:"body"`
	UpvoteCount    int64      `json:"upvote_count"`
	DownvoteCount  int64      `json:"downvote_count"`
	VoteScore      int64      `json:"vote_score"`
	Locked         bool       `json:"locked"`
	Pinned         bool       `json:"pinned"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Badge is an award definition. Auto-awarded badges carry a criteria type
// and configuration validated against the criteria registry.
type Badge struct {
	ID             int64                  `json:"id"`
	Name           string                 `json:"name"`
	Description    string                 `json:"description,omitempty"`
	CreatorID      int64                  `json:"creator_id"`
	CorpusID       *int64                 `json:"corpus_id,omitempty"` // nil for global badges
	IsPublic       bool                   `json:"is_public"`
	AutoAward      bool                   `json:"auto_award"`
	CriteriaType   string                 `json:"criteria_type,omitempty"`
	CriteriaConfig map[string]interface{} `json:"criteria_config,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

// VoteValue is +1 or -1. Anything else is a validation error.
type VoteValue int

const (
	Upvote   VoteValue = 1
	Downvote VoteValue = -1
)

// Vote is the authoritative child record behind every denormalized
// counter. (voter, target) is unique.
type Vote struct {
	ID         int64      `json:"id"`
	VoterID    int64      `json:"voter_id"`
	TargetType EntityType `json:"target_type"`
	TargetID   int64      `json:"target_id"`
	Value      VoteValue  `json:"value"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Award records a badge granted to a profile. (profile, badge, corpus) is
// unique; the constraint is what guarantees at-most-once granting.
type Award struct {
	ID        int64     `json:"id"`
	ProfileID int64     `json:"profile_id"`
	BadgeID   int64     `json:"badge_id"`
	CorpusID  *int64    `json:"corpus_id,omitempty"`
	GrantedAt time.Time `json:"granted_at"`
}

// NotificationKind categorizes outbound notifications.
type NotificationKind string

const (
	NotifyReply      NotificationKind = "reply"
	NotifyMention    NotificationKind = "mention"
	NotifyAward      NotificationKind = "award"
	NotifyModeration NotificationKind = "moderation"
)

// Notification is recipient-private: only the recipient (and superusers)
// can list or fetch it.
type Notification struct {
	ID          int64            `json:"id"`
	RecipientID int64            `json:"recipient_id"`
	Kind        NotificationKind `json:"kind"`
	ActorID     *int64           `json:"actor_id,omitempty"`
	TargetType  EntityType       `json:"target_type,omitempty"`
	TargetID    int64            `json:"target_id,omitempty"`
	Message     string           `json:"message"`
	RequestID   string           `json:"request_id,omitempty"`
	ReadAt      *time.Time       `json:"read_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// ModerationAction enumerates lifecycle transitions.
type ModerationAction string

const (
	ActionLock       ModerationAction = "lock"
	ActionUnlock     ModerationAction = "unlock"
	ActionPin        ModerationAction = "pin"
	ActionUnpin      ModerationAction = "unpin"
	ActionSoftDelete ModerationAction = "soft_delete"
	ActionRestore    ModerationAction = "restore"
)

// ModerationRecord is an append-only audit entry. Records are never
// mutated or removed; a reversal is a new record.
type ModerationRecord struct {
	ID         int64            `json:"id"`
	TargetType EntityType       `json:"target_type"`
	TargetID   int64            `json:"target_id"`
	Action     ModerationAction `json:"action"`
	ActorID    int64            `json:"actor_id"`
	Reason     string           `json:"reason,omitempty"`
	RequestID  string           `json:"request_id,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

// ReputationScore is the per-scope reputation aggregate for a profile.
// CorpusID nil means the global scope.
type ReputationScore struct {
	ProfileID int64     `json:"profile_id"`
	CorpusID  *int64    `json:"corpus_id,omitempty"`
	Score     int64     `json:"score"`
	UpdatedAt time.Time `json:"updated_at"`
}
