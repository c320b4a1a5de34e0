// Package history records every console operation in the history database.
package history

import (
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/pandeptwidyaop/panelctl/internal/apperr"
	"github.com/pandeptwidyaop/panelctl/internal/database"
	"github.com/pandeptwidyaop/panelctl/internal/models"
)

// ErrOperationNotFound is returned when no operation has the requested id.
var ErrOperationNotFound = errors.New("operation not found")

// Service stores operations.
type Service struct {
	db       *database.DB
	operator string
	now      func() time.Time
}

// NewService creates a new Service. operator is stored with every row.
func NewService(db *database.DB, operator string) *Service {
	return &Service{db: db, operator: operator, now: time.Now}
}

// Start records a running operation.
func (s *Service) Start(action, target string) (*models.Operation, error) {
	op := &models.Operation{
		ID:        uuid.New().String(),
		Action:    action,
		Target:    target,
		Status:    models.StatusRunning,
		StartedAt: s.now(),
	}

	_, err := s.db.Exec(
		"INSERT INTO operations (id, action, target, status, started_at, operator) VALUES (?, ?, ?, ?, ?, ?)",
		op.ID, op.Action, op.Target, op.Status, op.StartedAt, s.operator,
	)
	if err != nil {
		return nil, err
	}
	return op, nil
}

// Finish marks op as succeeded, failed or aborted depending on opErr.
func (s *Service) Finish(op *models.Operation, opErr error) error {
	now := s.now()
	op.FinishedAt = &now

	switch {
	case opErr == nil:
		op.Status = models.StatusSuccess
	case apperr.IsDeclined(opErr):
		op.Status = models.StatusAborted
	default:
		op.Status = models.StatusFailed
		op.Detail = opErr.Error()
	}

	_, err := s.db.Exec(
		"UPDATE operations SET status = ?, detail = ?, finished_at = ? WHERE id = ?",
		op.Status, op.Detail, now, op.ID,
	)
	return err
}

// Track runs fn as one recorded operation and returns fn's error. Failing
// to write the history never fails the operation itself.
func (s *Service) Track(action, target string, fn func() error) error {
	op, err := s.Start(action, target)
	if err != nil {
		log.Printf("[History] Could not record %s: %v", action, err)
		return fn()
	}

	opErr := fn()
	if err := s.Finish(op, opErr); err != nil {
		log.Printf("[History] Could not finish %s: %v", op.ID, err)
	}
	return opErr
}

// Get returns one operation.
func (s *Service) Get(id string) (*models.Operation, error) {
	row := s.db.QueryRow(
		"SELECT id, action, target, status, detail, started_at, finished_at FROM operations WHERE id = ?",
		id,
	)
	op, err := scanOperation(row)
	if err == sql.ErrNoRows {
		return nil, ErrOperationNotFound
	}
	return op, err
}

// Recent returns the latest operations, newest first.
func (s *Service) Recent(limit int) ([]models.Operation, error) {
	if limit == 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, action, target, status, detail, started_at, finished_at
		FROM operations
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ops := make([]models.Operation, 0)
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		ops = append(ops, *op)
	}
	return ops, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOperation(row scanner) (*models.Operation, error) {
	var op models.Operation
	var target, detail sql.NullString
	var finishedAt sql.NullTime

	if err := row.Scan(&op.ID, &op.Action, &target, &op.Status, &detail, &op.StartedAt, &finishedAt); err != nil {
		return nil, err
	}
	if target.Valid {
		op.Target = target.String
	}
	if detail.Valid {
		op.Detail = detail.String
	}
	if finishedAt.Valid {
		op.FinishedAt = &finishedAt.Time
	}
	return &op, nil
}
