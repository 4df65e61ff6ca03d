package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrBatchNotFound is returned by GetBatch for an unknown ID.
var ErrBatchNotFound = errors.New("batch not found")

// Batch is one translation run.
type Batch struct {
	ID         string    `json:"id"`
	Label      string    `json:"label"`
	InputRoot  string    `json:"input_root"`
	OutputRoot string    `json:"output_root"`
	SourceLang string    `json:"source_lang"`
	TargetLang string    `json:"target_lang"`
	Provider   string    `json:"provider"`
	CreatedAt  time.Time `json:"created_at"`
}

// FileRecord is one entry of a batch's result log.
type FileRecord struct {
	BatchID   string    `json:"batch_id"`
	File      string    `json:"file"`
	Output    string    `json:"output,omitempty"`
	State     string    `json:"state"`
	ErrorKind string    `json:"error_kind,omitempty"`
	Message   string    `json:"message,omitempty"`
	Chunks    int       `json:"chunks"`
	CreatedAt time.Time `json:"created_at"`
}

// NewBatchID returns a fresh batch identifier.
func NewBatchID() string {
	return "b_" + uuid.NewString()
}

// CreateBatch stores b, assigning an ID when it has none.
func (s *Store) CreateBatch(ctx context.Context, b Batch) (Batch, error) {
	if b.ID == "" {
		b.ID = NewBatchID()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO batches (id, label, input_root, output_root, source_lang, target_lang, provider, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Label, b.InputRoot, b.OutputRoot, b.SourceLang, b.TargetLang, b.Provider, b.CreatedAt)
	return b, err
}

// GetBatch retrieves a batch by ID.
func (s *Store) GetBatch(ctx context.Context, id string) (*Batch, error) {
	var b Batch
	err := s.db.QueryRowContext(ctx,
		`SELECT id, label, input_root, output_root, source_lang, target_lang, provider, created_at FROM batches WHERE id = ?`,
		id).Scan(&b.ID, &b.Label, &b.InputRoot, &b.OutputRoot, &b.SourceLang, &b.TargetLang, &b.Provider, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBatches returns every batch, newest first.
func (s *Store) ListBatches(ctx context.Context) ([]Batch, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, label, input_root, output_root, source_lang, target_lang, provider, created_at FROM batches ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []Batch
	for rows.Next() {
		var b Batch
		if err := rows.Scan(&b.ID, &b.Label, &b.InputRoot, &b.OutputRoot, &b.SourceLang, &b.TargetLang, &b.Provider, &b.CreatedAt); err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// AppendFileResult adds r to its batch's log. Records are never updated.
func (s *Store) AppendFileResult(ctx context.Context, r FileRecord) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO batch_files (batch_id, file, output, state, error_kind, message, chunks, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.BatchID, r.File, r.Output, r.State, r.ErrorKind, r.Message, r.Chunks, r.CreatedAt)
	return err
}

// BatchFiles returns a batch's log in append order.
func (s *Store) BatchFiles(ctx context.Context, batchID string) ([]FileRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT batch_id, file, COALESCE(output, ''), state, COALESCE(error_kind, ''), COALESCE(message, ''), chunks, created_at FROM batch_files WHERE batch_id = ? ORDER BY seq`,
		batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []FileRecord
	for rows.Next() {
		var r FileRecord
		if err := rows.Scan(&r.BatchID, &r.File, &r.Output, &r.State, &r.ErrorKind, &r.Message, &r.Chunks, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// WrittenFiles returns the input paths a batch already wrote, for resume.
func (s *Store) WrittenFiles(ctx context.Context, batchID string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT file FROM batch_files WHERE batch_id = ? AND state = 'written'`,
		batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	done := make(map[string]bool)
	for rows.Next() {
		var file string
		if err := rows.Scan(&file); err != nil {
			return nil, err
		}
		done[file] = true
	}
	return done, rows.Err()
}
