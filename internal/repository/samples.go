package repository

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/ocr-dataset-prep/internal/entity"
)

type SampleRepository interface {
	InsertBatch(ctx context.Context, samples []entity.Sample) error
	CountByRun(ctx context.Context, runID uuid.UUID) (map[string]int, error)
	ListByRun(ctx context.Context, runID uuid.UUID) ([]entity.Sample, error)
}

type sampleRepo struct {
	db  *DB
	log *slog.Logger
}

func NewSampleRepository(db *DB, log *slog.Logger) SampleRepository {
	if log == nil {
		log = slog.Default()
	}
	return &sampleRepo{db: db, log: log}
}

// InsertBatch writes all samples in one transaction.
func (r *sampleRepo) InsertBatch(ctx context.Context, samples []entity.Sample) (err error) {
	if len(samples) == 0 {
		return nil
	}
	tx, err := r.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return dbError("begin", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, r.db.rebind(`
		INSERT INTO samples (run_id, line, image_ref, text, split, status, reason, output_rel)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return dbError("prepare sample insert", err)
	}
	defer stmt.Close()

	for _, s := range samples {
		if _, err = stmt.ExecContext(ctx, s.RunID, s.Line, s.ImageRef, s.Text, s.Split, s.Status, s.Reason, s.OutputRel); err != nil {
			r.log.Error("sample insert failed", "run_id", s.RunID, "line", s.Line, "err", err)
			return dbError("insert sample", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return dbError("commit", err)
	}
	r.log.Debug("samples inserted", "run_id", samples[0].RunID, "count", len(samples))
	return nil
}

// CountByRun groups a run's samples by status.
func (r *sampleRepo) CountByRun(ctx context.Context, runID uuid.UUID) (map[string]int, error) {
	rows, err := r.db.SQL.QueryContext(ctx, r.db.rebind(`SELECT status, COUNT(*) FROM samples WHERE run_id = ? GROUP BY status`), runID)
	if err != nil {
		return nil, dbError("count samples", err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, dbError("scan count", err)
		}
		out[status] = n
	}
	return out, rows.Err()
}

// ListByRun returns a run's samples in label-line order.
func (r *sampleRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]entity.Sample, error) {
	rows, err := r.db.SQL.QueryContext(ctx, r.db.rebind(`
		SELECT run_id, line, image_ref, text, split, status, reason, output_rel
		FROM samples WHERE run_id = ? ORDER BY line, id`), runID)
	if err != nil {
		return nil, dbError("list samples", err)
	}
	defer rows.Close()

	var out []entity.Sample
	for rows.Next() {
		var s entity.Sample
		if err := rows.Scan(&s.RunID, &s.Line, &s.ImageRef, &s.Text, &s.Split, &s.Status, &s.Reason, &s.OutputRel); err != nil {
			return nil, dbError("scan sample", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
