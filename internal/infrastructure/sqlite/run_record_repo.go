package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sam30606/push-image-to-k8s/internal/domain"
)

// RunRecordRepo implements [domain.RunRecordRepository] backed by SQLite.
type RunRecordRepo struct {
	DB *sql.DB
}

func (r *RunRecordRepo) Put(ctx context.Context, rec domain.RunRecord) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO run_records (job_id, host, image, transfer, load_outcome, verify, verified_ref, verified_size, detail, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (job_id, host) DO UPDATE SET
		   image = excluded.image,
		   transfer = excluded.transfer,
		   load_outcome = excluded.load_outcome,
		   verify = excluded.verify,
		   verified_ref = excluded.verified_ref,
		   verified_size = excluded.verified_size,
		   detail = excluded.detail,
		   updated_at = excluded.updated_at`,
		rec.JobID, string(rec.Host), rec.Image,
		string(rec.Result.Transfer), string(rec.Result.Load), string(rec.Result.Verify),
		rec.Result.Verified.Ref, rec.Result.Verified.Size, rec.Result.Detail,
		rec.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert run record: %w", err)
	}
	return nil
}

func (r *RunRecordRepo) Get(ctx context.Context, jobID string, host domain.HostID) (domain.RunRecord, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT job_id, host, image, transfer, load_outcome, verify, verified_ref, verified_size, detail, updated_at
		 FROM run_records WHERE job_id = ? AND host = ?`,
		jobID, string(host),
	)
	return scanRunRecord(row)
}

func (r *RunRecordRepo) ListByJob(ctx context.Context, jobID string) ([]domain.RunRecord, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT job_id, host, image, transfer, load_outcome, verify, verified_ref, verified_size, detail, updated_at
		 FROM run_records WHERE job_id = ?`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("list run records: %w", err)
	}
	defer rows.Close()

	var records []domain.RunRecord
	for rows.Next() {
		rec, err := scanRunRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *RunRecordRepo) DeleteByJob(ctx context.Context, jobID string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM run_records WHERE job_id = ?`, jobID)
	if err != nil {
		return fmt.Errorf("delete run records: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRunRecord(s scanner) (domain.RunRecord, error) {
	var rec domain.RunRecord
	var host, transfer, load, verify, updatedAt string
	err := s.Scan(&rec.JobID, &host, &rec.Image, &transfer, &load, &verify,
		&rec.Result.Verified.Ref, &rec.Result.Verified.Size, &rec.Result.Detail, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, fmt.Errorf("%w", domain.ErrNotFound)
		}
		return rec, fmt.Errorf("scan run record: %w", err)
	}
	rec.Host = domain.HostID(host)
	rec.Result.Host = domain.HostID(host)
	rec.Result.Transfer = domain.StageOutcome(transfer)
	rec.Result.Load = domain.StageOutcome(load)
	rec.Result.Verify = domain.StageOutcome(verify)
	t, err := time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return rec, fmt.Errorf("parse updated_at: %w", err)
	}
	rec.UpdatedAt = t
	return rec, nil
}
