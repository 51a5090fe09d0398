package service

import (
	"context"
	"fmt"

	"github.com/kursadbilgin/renewal-reminder/internal/domain"
	"github.com/kursadbilgin/renewal-reminder/internal/repository"
)

// DedupGuard answers whether a delivery key was already attempted on the
// NotificationLog ledger. Success and failure both count as attempted.
type DedupGuard struct {
	logs repository.NotificationLogRepository
}

func NewDedupGuard(logs repository.NotificationLogRepository) (*DedupGuard, error) {
	if logs == nil {
		return nil, fmt.Errorf("notification log repository is required")
	}
	return &DedupGuard{logs: logs}, nil
}

func (g *DedupGuard) AlreadyAttempted(ctx context.Context, key domain.DeliveryKey) (bool, error) {
	exists, err := g.logs.ExistsForKey(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to check delivery key %s: %w", key, err)
	}
	return exists, nil
}
