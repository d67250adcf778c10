package booking

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/itp-scheduling/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (s *Service) record(ctx context.Context, entry models.ActivityLog) {
	entry.ID = primitive.NewObjectID()
	entry.Timestamp = s.now().UTC()
	if entry.Actor == "" {
		entry.Actor = "system"
	}
	if err := s.store.Activity.InsertActivity(ctx, entry); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"action":    entry.Action,
			"entity_id": entry.EntityID,
		}).Warn("Failed to write activity log")
	}
}

// ListActivity returns the newest activity entries, for one station or all when
// stationID is empty. A non-positive limit uses the default; limits are capped.
func (s *Service) ListActivity(ctx context.Context, stationID string, limit int) ([]models.ActivityLog, error) {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	if limit > MaxActivityLimit {
		limit = MaxActivityLimit
	}
	entries, err := s.store.Activity.FindActivity(ctx, stationID, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	return entries, nil
}
