package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/digkill/TGPromoNFTBot/internal/docstore"
	"github.com/digkill/TGPromoNFTBot/internal/models"
)

const broadcastCollection = "broadcasts"

type BroadcastRepository struct {
	store docstore.Store
}

func NewBroadcastRepository(store docstore.Store) *BroadcastRepository {
	return &BroadcastRepository{store: store}
}

// Create stores a Draft broadcast under a fresh id.
func (r *BroadcastRepository) Create(ctx context.Context, text string, audience models.Audience, adminID int64) (*models.BroadcastMessage, error) {
	msg := &models.BroadcastMessage{
		MessageID:        uuid.NewString(),
		Text:             text,
		TargetAudience:   audience,
		Status:           models.BroadcastStatusDraft,
		CreatedAt:        now(),
		CreatedByAdminID: adminID,
	}
	if err := r.store.Set(ctx, broadcastCollection, msg.MessageID, encodeBroadcast(msg)); err != nil {
		return nil, fmt.Errorf("create broadcast: %w", err)
	}
	return msg, nil
}

func (r *BroadcastRepository) GetByID(ctx context.Context, id string) (*models.BroadcastMessage, error) {
	doc, err := r.store.Get(ctx, broadcastCollection, id)
	if err != nil {
		return nil, fmt.Errorf("get broadcast: %w", err)
	}
	if doc == nil {
		return nil, nil
	}
	return decodeBroadcast(doc)
}

// MarkSent moves a Draft to Sent as a revision-checked write. It reports
// false when the broadcast is missing, already Sent, or was changed
// concurrently.
func (r *BroadcastRepository) MarkSent(ctx context.Context, id string) (*models.BroadcastMessage, bool, error) {
	doc, err := r.store.Get(ctx, broadcastCollection, id)
	if err != nil {
		return nil, false, fmt.Errorf("get broadcast: %w", err)
	}
	if doc == nil {
		return nil, false, nil
	}
	msg, err := decodeBroadcast(doc)
	if err != nil {
		return nil, false, err
	}
	if msg.Status != models.BroadcastStatusDraft {
		return msg, false, nil
	}

	sentAt := now()
	msg.Status = models.BroadcastStatusSent
	msg.SentAt = &sentAt
	err = r.store.Update(ctx, broadcastCollection, doc.Key, encodeBroadcast(msg), doc.Revision)
	if errors.Is(err, docstore.ErrConflict) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("mark broadcast sent: %w", err)
	}
	return msg, true, nil
}

// Update overwrites the stored counters of a broadcast.
func (r *BroadcastRepository) Update(ctx context.Context, msg *models.BroadcastMessage) error {
	if err := r.store.Set(ctx, broadcastCollection, msg.MessageID, encodeBroadcast(msg)); err != nil {
		return fmt.Errorf("update broadcast: %w", err)
	}
	return nil
}

// ListRecent returns up to limit broadcasts, newest first.
func (r *BroadcastRepository) ListRecent(ctx context.Context, limit int) ([]models.BroadcastMessage, error) {
	docs, err := r.store.Find(ctx, broadcastCollection, docstore.Query{OrderBy: "createdAt", Desc: true, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("list broadcasts: %w", err)
	}
	out := make([]models.BroadcastMessage, 0, len(docs))
	for i := range docs {
		msg, err := decodeBroadcast(&docs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *msg)
	}
	return out, nil
}

func encodeBroadcast(m *models.BroadcastMessage) docstore.Fields {
	return docstore.Fields{
		"schemaVersion":    int64(models.SchemaVersion),
		"messageId":        m.MessageID,
		"text":             m.Text,
		"targetAudience":   m.TargetAudience.String(),
		"status":           m.Status.String(),
		"createdAt":        m.CreatedAt.UTC(),
		"sentAt":           timeOrNil(m.SentAt),
		"deliveredCount":   int64(m.DeliveredCount),
		"blockedCount":     int64(m.BlockedCount),
		"failedCount":      int64(m.FailedCount),
		"createdByAdminId": m.CreatedByAdminID,
	}
}

func decodeBroadcast(doc *docstore.Document) (*models.BroadcastMessage, error) {
	if err := checkSchema(doc); err != nil {
		return nil, err
	}
	f := doc.Fields
	audience, err := models.ParseAudience(f.String("targetAudience"))
	if err != nil {
		return nil, corrupt(doc.Key, err)
	}
	status, err := models.ParseBroadcastStatus(f.String("status"))
	if err != nil {
		return nil, corrupt(doc.Key, err)
	}
	return &models.BroadcastMessage{
		MessageID:        f.String("messageId"),
		Text:             f.String("text"),
		TargetAudience:   audience,
		Status:           status,
		CreatedAt:        f.Time("createdAt"),
		SentAt:           f.TimePtr("sentAt"),
		DeliveredCount:   f.Int("deliveredCount"),
		BlockedCount:     f.Int("blockedCount"),
		FailedCount:      f.Int("failedCount"),
		CreatedByAdminID: f.Int64("createdByAdminId"),
	}, nil
}
