package repository

import (
	"context"

	"github.com/bct-trans/efactura-api/internal/domain/entity"
)

// MessageRepository is the persistence port for notification rows.
type MessageRepository interface {
	Create(ctx context.Context, m *entity.Message) error

	// Latest returns the most recent messages, newest first.
	Latest(ctx context.Context, limit int) ([]*entity.Message, error)
}
