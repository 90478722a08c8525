package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lostfound-api/internal/application/item"
	"github.com/lostfound-api/internal/application/notification"
	"github.com/lostfound-api/internal/domain"
)

type SweepResult struct {
	Scanned int `json:"scanned"`
	Expired int `json:"expired"`
	Failed  int `json:"failed"`
}

type expiryStore interface {
	ListPendingCreatedBefore(ctx context.Context, t domain.ItemType, cutoff time.Time) ([]domain.Posting, error)
	CompareAndSwapStatus(ctx context.Context, t domain.ItemType, itemID string, from, to domain.ItemStatus) error
}

type Sweeper struct {
	items    expiryStore
	notifier notification.Notifier
	now      func() time.Time
}

func New(items expiryStore, notifier notification.Notifier) *Sweeper {
	return &Sweeper{items: items, notifier: notifier, now: time.Now}
}

// SweepExpired moves every Pending posting older than thresholdDays to
// Expired. A posting that changed status since it was listed is left alone.
func (s *Sweeper) SweepExpired(ctx context.Context, thresholdDays int) (SweepResult, error) {
	var res SweepResult
	if thresholdDays < 1 {
		return res, fmt.Errorf("threshold must be at least one day: %w", domain.ErrValidation)
	}
	cutoff := s.now().UTC().AddDate(0, 0, -thresholdDays)

	for _, t := range domain.ItemTypes {
		stale, err := s.items.ListPendingCreatedBefore(ctx, t, cutoff)
		if err != nil {
			return res, fmt.Errorf("list stale %s items: %w", t, err)
		}
		res.Scanned += len(stale)
		for i := range stale {
			p := &stale[i]
			err := s.items.CompareAndSwapStatus(ctx, t, p.ItemID, domain.StatusPending, domain.StatusExpired)
			if err != nil {
				if !errors.Is(err, domain.ErrConflict) {
					res.Failed++
					slog.Error("failed to expire item", "item_id", p.ItemID, "item_type", t.String(), "err", err)
				}
				continue
			}
			res.Expired++
			title, content := item.StatusChangedMessage(p, domain.StatusPending, domain.StatusExpired)
			s.notifier.Notify(p.PublisherUserID, title, content, domain.NotificationSystem, p.ItemID)
		}
	}

	slog.Info("expired item sweep finished", "threshold_days", thresholdDays,
		"scanned", res.Scanned, "expired", res.Expired, "failed", res.Failed)
	return res, nil
}
