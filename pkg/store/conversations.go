package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/folioworks/folio/pkg/auth"
	"github.com/folioworks/folio/pkg/model"
	"github.com/folioworks/folio/pkg/visibility"
)

const conversationColumns = `conversations.id, conversations.corpus_id, conversations.creator_id, conversations.topic, conversations.is_public, conversations.locked, conversations.pinned, conversations.deleted_at, conversations.created_at, conversations.updated_at`

const messageColumns = `messages.id, messages.conversation_id, messages.author_id, messages.body, messages.upvote_count, messages.downvote_count, messages.vote_score, messages.locked, messages.pinned, messages.deleted_at, messages.created_at`

// CreateConversation starts a thread in a corpus. Same contribution rule
// as documents.
func (s *Store) CreateConversation(ctx context.Context, sub auth.Subject, conv *model.Conversation) error {
	if sub.IsAnonymous() {
		return model.ErrPermissionDenied
	}
	if err := s.requireContribution(ctx, sub, conv.CorpusID); err != nil {
		return err
	}
	conv.CreatorID = sub.ProfileID

	query := `
		INSERT INTO conversations (corpus_id, creator_id, topic, is_public, locked, pinned, created_at, updated_at)
		VALUES ($1, $2, $3, $4, FALSE, FALSE, $5, $6)
		RETURNING id
	`

	now := time.Now()
	err := s.db.QueryRowContext(ctx, query,
		conv.CorpusID, conv.CreatorID, conv.Topic, conv.IsPublic, now, now,
	).Scan(&conv.ID)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}

	conv.CreatedAt = now
	conv.UpdatedAt = now
	return nil
}

// GetConversation resolves a conversation through the safe lookup
// gateway. Children of a soft-deleted conversation resolve their parent
// with includeDeleted to preserve thread structure.
func (s *Store) GetConversation(ctx context.Context, sub auth.Subject, id int64, includeDeleted bool) (*model.Conversation, error) {
	args := &visibility.Args{}
	conds := []string{fmt.Sprintf("conversations.id = %s", args.Add(id))}
	if !includeDeleted {
		conds = append(conds, "conversations.deleted_at IS NULL")
	}
	conds = append(conds, s.resolver.Visible(sub, model.EntityConversation)(args))

	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE ` + strings.Join(conds, " AND ")

	c, err := scanConversation(s.db.QueryRowContext(ctx, query, args.Values()...))
	if err == sql.ErrNoRows {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return c, nil
}

// ListConversations returns a corpus's threads visible to the subject,
// pinned threads first.
func (s *Store) ListConversations(ctx context.Context, sub auth.Subject, corpusID int64, includeDeleted bool) ([]*model.Conversation, error) {
	if _, err := s.GetCorpus(ctx, sub, corpusID, includeDeleted); err != nil {
		return nil, err
	}

	args := &visibility.Args{}
	conds := []string{fmt.Sprintf("conversations.corpus_id = %s", args.Add(corpusID))}
	if !includeDeleted {
		conds = append(conds, "conversations.deleted_at IS NULL")
	}
	conds = append(conds, s.resolver.Visible(sub, model.EntityConversation)(args))

	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE ` + strings.Join(conds, " AND ") + ` ORDER BY conversations.pinned DESC, conversations.updated_at DESC, conversations.id DESC`

	rows, err := s.db.QueryContext(ctx, query, args.Values()...)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var out []*model.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// PostMessage appends a message to a conversation. Locked conversations
// reject new messages; the conversation's existence is known once it
// resolved, so the rejection is a denial, not a not-found.
func (s *Store) PostMessage(ctx context.Context, sub auth.Subject, msg *model.Message) error {
	if sub.IsAnonymous() {
		return model.ErrPermissionDenied
	}

	conv, err := s.GetConversation(ctx, sub, msg.ConversationID, false)
	if err != nil {
		return err
	}
	if conv.Locked && !sub.IsSuperuser() {
		return fmt.Errorf("%w: conversation is locked", model.ErrPermissionDenied)
	}
	msg.AuthorID = sub.ProfileID

	query := `
		INSERT INTO messages (conversation_id, author_id, body, upvote_count, downvote_count, vote_score, created_at)
		VALUES ($1, $2, $3, 0, 0, 0, $4)
		RETURNING id
	`

	now := time.Now()
	err = s.db.QueryRowContext(ctx, query, msg.ConversationID, msg.AuthorID, msg.Body, now).Scan(&msg.ID)
	if err != nil {
		return fmt.Errorf("failed to post message: %w", err)
	}

	msg.CreatedAt = now

	// Keep the thread's recency current for pinned-first listings.
	if _, err := s.db.ExecContext(ctx, `UPDATE conversations SET updated_at = $1 WHERE id = $2`, now, msg.ConversationID); err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return nil
}

// GetMessage resolves a message through the safe lookup gateway.
func (s *Store) GetMessage(ctx context.Context, sub auth.Subject, id int64, includeDeleted bool) (*model.Message, error) {
	args := &visibility.Args{}
	conds := []string{fmt.Sprintf("messages.id = %s", args.Add(id))}
	if !includeDeleted {
		conds = append(conds, "messages.deleted_at IS NULL")
	}
	conds = append(conds, s.resolver.Visible(sub, model.EntityMessage)(args))

	query := `SELECT ` + messageColumns + ` FROM messages WHERE ` + strings.Join(conds, " AND ")

	m, err := scanMessage(s.db.QueryRowContext(ctx, query, args.Values()...))
	if err == sql.ErrNoRows {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return m, nil
}

// ListMessages returns a conversation's messages, pinned messages
// first and creation order within each group.
func (s *Store) ListMessages(ctx context.Context, sub auth.Subject, conversationID int64, includeDeleted bool) ([]*model.Message, error) {
	if _, err := s.GetConversation(ctx, sub, conversationID, includeDeleted); err != nil {
		return nil, err
	}

	args := &visibility.Args{}
	conds := []string{fmt.Sprintf("messages.conversation_id = %s", args.Add(conversationID))}
	if !includeDeleted {
		conds = append(conds, "messages.deleted_at IS NULL")
	}
	conds = append(conds, s.resolver.Visible(sub, model.EntityMessage)(args))

	query := `SELECT ` + messageColumns + ` FROM messages WHERE ` + strings.Join(conds, " AND ") + ` ORDER BY messages.pinned DESC, messages.created_at ASC, messages.id ASC`

	rows, err := s.db.QueryContext(ctx, query, args.Values()...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var out []*model.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanConversation(row rowScanner) (*model.Conversation, error) {
	var c model.Conversation
	var deletedAt sql.NullTime
	err := row.Scan(&c.ID, &c.CorpusID, &c.CreatorID, &c.Topic, &c.IsPublic, &c.Locked, &c.Pinned, &deletedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		c.DeletedAt = &t
	}
	return &c, nil
}

func scanMessage(row rowScanner) (*model.Message, error) {
	var m model.Message
	var deletedAt sql.NullTime
	err := row.Scan(&m.ID, &m.ConversationID, &m.AuthorID, &m.Body, &m.UpvoteCount, &m.DownvoteCount, &m.VoteScore, &m.Locked, &m.Pinned, &deletedAt, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		m.DeletedAt = &t
	}
	return &m, nil
}
