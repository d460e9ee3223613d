// Package storage persists run history and delivery records.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	// import db drivers
	_ "github.com/lib/pq"

	"github.com/tribunal-dev/tribunal/internal/core"
)

// Store defines the database operations of the pipeline: run history for
// audit, delivery records for idempotent inline comments.
type Store interface {
	SaveRun(ctx context.Context, run *core.RunRecord) error
	GetLatestRunForPR(ctx context.Context, repoFullName string, prNumber int) (*core.RunRecord, error)

	LoadDeliveryRecord(ctx context.Context, repoFullName string, prNumber int) (*core.DeliveryRecord, error)
	SaveDeliveryRecord(ctx context.Context, rec *core.DeliveryRecord) error
}

type postgresStore struct {
	db *sqlx.DB
}

// NewStore creates a new Store
func NewStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

// SaveRun inserts a completed run into the database.
func (s *postgresStore) SaveRun(ctx context.Context, run *core.RunRecord) error {
	query := `INSERT INTO runs (repo_full_name, pr_number, head_sha, status, report, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.db.ExecContext(ctx, query, run.RepoFullName, run.PRNumber, run.HeadSHA, run.Status, run.ReportJSON, time.Now())
	return err
}

// GetLatestRunForPR retrieves the most recent run for a given pull request.
func (s *postgresStore) GetLatestRunForPR(ctx context.Context, repoFullName string, prNumber int) (*core.RunRecord, error) {
	query := `
		SELECT id, repo_full_name, pr_number, head_sha, status, report, created_at
		FROM runs
		WHERE repo_full_name = $1 AND pr_number = $2
		ORDER BY created_at DESC
		LIMIT 1`

	row := s.db.QueryRowContext(ctx, query, repoFullName, prNumber)

	var r core.RunRecord
	err := row.Scan(&r.ID, &r.RepoFullName, &r.PRNumber, &r.HeadSHA, &r.Status, &r.ReportJSON, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no previous run found for PR %s#%d", repoFullName, prNumber)
		}
		return nil, err
	}
	return &r, nil
}

// LoadDeliveryRecord reads the delivery record for a pull request. A missing
// record yields a fresh empty one, not an error.
func (s *postgresStore) LoadDeliveryRecord(ctx context.Context, repoFullName string, prNumber int) (*core.DeliveryRecord, error) {
	query := `SELECT entries FROM delivery_records WHERE repo_full_name = $1 AND pr_number = $2`

	var raw []byte
	err := s.db.QueryRowContext(ctx, query, repoFullName, prNumber).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return core.NewDeliveryRecord(repoFullName, prNumber), nil
	}
	if err != nil {
		return nil, err
	}

	rec := core.NewDeliveryRecord(repoFullName, prNumber)
	if err := json.Unmarshal(raw, &rec.Entries); err != nil {
		return nil, fmt.Errorf("corrupt delivery record for PR %s#%d: %w", repoFullName, prNumber, err)
	}
	return rec, nil
}

// SaveDeliveryRecord upserts the delivery record for a pull request.
func (s *postgresStore) SaveDeliveryRecord(ctx context.Context, rec *core.DeliveryRecord) error {
	raw, err := json.Marshal(rec.Entries)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO delivery_records (repo_full_name, pr_number, entries, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (repo_full_name, pr_number)
		DO UPDATE SET entries = EXCLUDED.entries, updated_at = EXCLUDED.updated_at`
	_, err = s.db.ExecContext(ctx, query, rec.RepoFull, rec.PRNumber, raw, time.Now())
	return err
}

// RecordStore adapts a Store to the delivery layer's record contract.
type RecordStore struct {
	store Store
}

// NewRecordStore wraps a Store for delivery-record access.
func NewRecordStore(store Store) *RecordStore {
	return &RecordStore{store: store}
}

func (r *RecordStore) Load(ctx context.Context, repoFull string, prNumber int) (*core.DeliveryRecord, error) {
	return r.store.LoadDeliveryRecord(ctx, repoFull, prNumber)
}

func (r *RecordStore) Save(ctx context.Context, rec *core.DeliveryRecord) error {
	return r.store.SaveDeliveryRecord(ctx, rec)
}
