package moderation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/folioworks/folio/pkg/auth"
	"github.com/folioworks/folio/pkg/consistency"
	"github.com/folioworks/folio/pkg/grants"
	"github.com/folioworks/folio/pkg/model"
	"github.com/folioworks/folio/pkg/notify"
	"github.com/folioworks/folio/pkg/observability"
	"github.com/folioworks/folio/pkg/store"
)

// Machine authorizes and applies moderation actions. Every applied
// action updates the target's state and appends an audit record in the
// same transaction. Re-applying the current state is accepted: the
// state write is a no-op but the audit record is still appended, so the
// trail reflects moderator intent rather than state diffs.
type Machine struct {
	db       *sql.DB
	store    *store.Store
	grants   *grants.Store
	records  *Records
	engine   *consistency.Engine
	notifier notify.Notifier
	metrics  *observability.Metrics
	logger   *observability.Logger
}

// NewMachine creates a moderation machine. notifier must not be nil;
// metrics may be nil.
func NewMachine(db *sql.DB, engine *consistency.Engine, notifier notify.Notifier, metrics *observability.Metrics, logger *observability.Logger) *Machine {
	return &Machine{
		db:       db,
		store:    store.New(db),
		grants:   grants.NewStore(db),
		records:  NewRecords(db),
		engine:   engine,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
	}
}

// Records exposes the audit trail store.
func (m *Machine) Records() *Records {
	return m.records
}

// target captures what the machine needs to know about the row being
// moderated.
type target struct {
	creatorID int64
	corpusID  int64
}

// Apply authorizes and executes a moderation action against a target.
// The returned record is the audit entry appended for this action.
// Denied or invalid requests perform no mutation at all.
func (m *Machine) Apply(ctx context.Context, sub auth.Subject, action model.ModerationAction, targetType model.EntityType, targetID int64, reason string) (*model.ModerationRecord, error) {
	if sub.IsAnonymous() {
		return nil, model.ErrPermissionDenied
	}

	stmt, err := transitionFor(action, targetType)
	if err != nil {
		return nil, err
	}

	tgt, err := m.resolveTarget(ctx, sub, targetType, targetID)
	if err != nil {
		return nil, err
	}

	allowed, err := m.authorize(ctx, sub, action, targetType, targetID, tgt)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, model.ErrPermissionDenied
	}

	rec := &model.ModerationRecord{
		TargetType: targetType,
		TargetID:   targetID,
		Action:     action,
		ActorID:    sub.ProfileID,
		Reason:     reason,
		RequestID:  uuid.New().String(),
		CreatedAt:  time.Now(),
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, stmt, targetID); err != nil {
		return nil, fmt.Errorf("failed to apply %s: %w", action, err)
	}

	if err := m.records.append(ctx, tx, rec); err != nil {
		return nil, err
	}

	// Soft-deleting or restoring content changes the owner's reputation
	// inputs, so recompute inside the same transaction.
	if action == model.ActionSoftDelete || action == model.ActionRestore {
		if err := m.engine.RecomputeReputation(ctx, tx, tgt.creatorID, &tgt.corpusID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit moderation action: %w", err)
	}

	if m.metrics != nil {
		m.metrics.ModerationActionsTotal.WithLabelValues(string(action), string(targetType)).Inc()
	}

	m.notifyCreator(ctx, sub, rec, tgt)

	return rec, nil
}

// transitionFor maps an action and target type to its state write.
// Lock and pin apply to conversations and messages; soft delete and
// restore also cover documents.
func transitionFor(action model.ModerationAction, targetType model.EntityType) (string, error) {
	switch action {
	case model.ActionLock, model.ActionUnlock, model.ActionPin, model.ActionUnpin:
		switch targetType {
		case model.EntityConversation, model.EntityMessage:
		default:
			return "", model.ValidationError("%s does not apply to %s targets", action, targetType)
		}
	case model.ActionSoftDelete, model.ActionRestore:
		switch targetType {
		case model.EntityConversation, model.EntityMessage, model.EntityDocument:
		default:
			return "", model.ValidationError("%s does not apply to %s targets", action, targetType)
		}
	default:
		return "", model.ValidationError("unknown moderation action %q", action)
	}

	table := map[model.EntityType]string{
		model.EntityConversation: "conversations",
		model.EntityMessage:      "messages",
		model.EntityDocument:     "documents",
	}[targetType]

	switch action {
	case model.ActionLock, model.ActionUnlock, model.ActionPin, model.ActionUnpin:
		column := "locked"
		if action == model.ActionPin || action == model.ActionUnpin {
			column = "pinned"
		}
		value := "TRUE"
		if action == model.ActionUnlock || action == model.ActionUnpin {
			value = "FALSE"
		}
		// Messages have no updated_at column; threads keep theirs
		// current so pinned-first listings reflect the change.
		if targetType == model.EntityConversation {
			return fmt.Sprintf(`UPDATE conversations SET %s = %s, updated_at = CURRENT_TIMESTAMP WHERE id = $1`, column, value), nil
		}
		return fmt.Sprintf(`UPDATE messages SET %s = %s WHERE id = $1`, column, value), nil
	case model.ActionSoftDelete:
		return fmt.Sprintf(`UPDATE %s SET deleted_at = CURRENT_TIMESTAMP WHERE id = $1 AND deleted_at IS NULL`, table), nil
	case model.ActionRestore:
		return fmt.Sprintf(`UPDATE %s SET deleted_at = NULL WHERE id = $1`, table), nil
	}
	return "", model.ValidationError("unknown moderation action %q", action)
}

// resolveTarget loads the target through the visibility gateway,
// including soft-deleted rows so restore can find them. Targets the
// subject cannot see report not found.
func (m *Machine) resolveTarget(ctx context.Context, sub auth.Subject, targetType model.EntityType, targetID int64) (*target, error) {
	switch targetType {
	case model.EntityConversation:
		conv, err := m.store.GetConversation(ctx, sub, targetID, true)
		if err != nil {
			return nil, err
		}
		return &target{creatorID: conv.CreatorID, corpusID: conv.CorpusID}, nil
	case model.EntityMessage:
		msg, err := m.store.GetMessage(ctx, sub, targetID, true)
		if err != nil {
			return nil, err
		}
		conv, err := m.store.GetConversation(ctx, sub, msg.ConversationID, true)
		if err != nil {
			return nil, err
		}
		return &target{creatorID: msg.AuthorID, corpusID: conv.CorpusID}, nil
	case model.EntityDocument:
		doc, err := m.store.GetDocument(ctx, sub, targetID, true)
		if err != nil {
			return nil, err
		}
		return &target{creatorID: doc.CreatorID, corpusID: doc.CorpusID}, nil
	default:
		return nil, model.ValidationError("unmoderatable target type %q", targetType)
	}
}

// authorize decides whether the subject may perform the action.
// Superusers always may. Otherwise the subject must own the corpus the
// target lives in, or hold the required capability on the target itself
// or on its corpus.
func (m *Machine) authorize(ctx context.Context, sub auth.Subject, action model.ModerationAction, targetType model.EntityType, targetID int64, tgt *target) (bool, error) {
	if sub.IsSuperuser() {
		return true, nil
	}

	corpus, err := m.store.GetCorpus(ctx, sub, tgt.corpusID, true)
	if err == nil && corpus.CreatorID == sub.ProfileID {
		return true, nil
	}

	capability := grants.CapabilityUpdate
	if action == model.ActionSoftDelete || action == model.ActionRestore {
		capability = grants.CapabilityDelete
	}

	ok, err := m.grants.HasCapability(ctx, sub.ProfileID, targetType, targetID, capability)
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}

	return m.grants.HasCapability(ctx, sub.ProfileID, model.EntityCorpus, tgt.corpusID, capability)
}

// notifyCreator tells the content creator about the action. Actors are
// not notified about their own moderation. Delivery failure does not
// fail the action.
func (m *Machine) notifyCreator(ctx context.Context, sub auth.Subject, rec *model.ModerationRecord, tgt *target) {
	if tgt.creatorID == sub.ProfileID {
		return
	}

	actorID := sub.ProfileID
	n := &model.Notification{
		RecipientID: tgt.creatorID,
		Kind:        model.NotifyModeration,
		ActorID:     &actorID,
		TargetType:  rec.TargetType,
		TargetID:    rec.TargetID,
		Message:     fmt.Sprintf("A moderator applied %s to your %s", rec.Action, rec.TargetType),
		RequestID:   rec.RequestID,
	}
	if err := m.notifier.Notify(ctx, n); err != nil && m.logger != nil {
		m.logger.WithError(err).
			WithField("request_id", rec.RequestID).
			Warn("failed to deliver moderation notification")
	}
}
