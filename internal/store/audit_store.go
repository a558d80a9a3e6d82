package store

import (
	"context"

	"github.com/google/uuid"

	"ledger/internal/models"
)

type AuditStore struct {
	db DB
}

func NewAuditStore(db DB) *AuditStore {
	return &AuditStore{db: db}
}

// Log records an admin action; data is a JSON object.
func (s *AuditStore) Log(ctx context.Context, actor, action, entity, data string) error {
	if data == "" {
		data = "{}"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor, action, entity, data)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.NewString(), actor, action, entity, data)
	return err
}

func (s *AuditStore) List(ctx context.Context, limit, offset int) ([]models.AuditEntry, error) {
	rows := []models.AuditEntry{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, actor, action, entity, data::text AS data, created_at
		FROM audit_logs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
