package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/ocr-dataset-prep/constants"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/common"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/entity"
)

// RunOutcome is what a finished run reports back to the catalog.
type RunOutcome struct {
	Valid        int
	Invalid      int
	Processed    int
	Failed       int
	ErrorMessage string
}

type RunRepository interface {
	Start(ctx context.Context, run entity.Run) (*entity.Run, error)
	Finish(ctx context.Context, id uuid.UUID, out RunOutcome) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Run, error)
	List(ctx context.Context, limit int) ([]*entity.Run, error)
}

type runRepo struct {
	db  *DB
	log *slog.Logger
}

func NewRunRepository(db *DB, log *slog.Logger) RunRepository {
	if log == nil {
		log = slog.Default()
	}
	return &runRepo{db: db, log: log}
}

func (r *runRepo) Start(ctx context.Context, run entity.Run) (*entity.Run, error) {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	run.Status = string(constants.RunRunning)

	_, err := r.db.SQL.ExecContext(ctx, r.db.rebind(`
		INSERT INTO runs (id, input_labels, output_dir, seed, train_ratio, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		run.ID, run.InputLabels, run.OutputDir, strconv.FormatUint(run.Seed, 10), run.TrainRatio, run.Status, run.StartedAt)
	if err != nil {
		r.log.Error("run start failed", "run_id", run.ID, "err", err)
		return nil, dbError("insert run", err)
	}
	r.log.Info("run started", "run_id", run.ID, "input_labels", run.InputLabels)
	return &run, nil
}

func (r *runRepo) Finish(ctx context.Context, id uuid.UUID, out RunOutcome) error {
	status := constants.RunOK
	var errMsg sql.NullString
	if out.ErrorMessage != "" {
		status = constants.RunFailed
		errMsg = sql.NullString{String: out.ErrorMessage, Valid: true}
	}
	res, err := r.db.SQL.ExecContext(ctx, r.db.rebind(`
		UPDATE runs
		SET status = ?, finished_at = ?, valid = ?, invalid = ?, processed = ?, failed = ?, error = ?
		WHERE id = ?`),
		string(status), time.Now().UTC(), out.Valid, out.Invalid, out.Processed, out.Failed, errMsg, id)
	if err != nil {
		r.log.Error("run finish failed", "run_id", id, "err", err)
		return dbError("update run", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.WrapError(common.ErrNotFound, "run "+id.String())
	}
	if status == constants.RunFailed {
		r.log.Warn("run finished (FAILED)", "run_id", id, "error", out.ErrorMessage)
	} else {
		r.log.Info("run finished (OK)", "run_id", id, "processed", out.Processed, "failed", out.Failed)
	}
	return nil
}

const runColumns = `id, input_labels, output_dir, seed, train_ratio, status, started_at, finished_at,
	valid, invalid, processed, failed, error`

func (r *runRepo) Get(ctx context.Context, id uuid.UUID) (*entity.Run, error) {
	row := r.db.SQL.QueryRowContext(ctx, r.db.rebind(`SELECT `+runColumns+` FROM runs WHERE id = ?`), id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.WrapError(common.ErrNotFound, "run "+id.String())
	}
	if err != nil {
		return nil, dbError("get run", err)
	}
	return run, nil
}

// List returns the most recent runs first.
func (r *runRepo) List(ctx context.Context, limit int) ([]*entity.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.SQL.QueryContext(ctx, r.db.rebind(`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT ?`), limit)
	if err != nil {
		return nil, dbError("list runs", err)
	}
	defer rows.Close()

	var out []*entity.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, dbError("scan run", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (*entity.Run, error) {
	var (
		run      entity.Run
		seed     string
		finished sql.NullTime
		errMsg   sql.NullString
	)
	if err := s.Scan(&run.ID, &run.InputLabels, &run.OutputDir, &seed, &run.TrainRatio, &run.Status,
		&run.StartedAt, &finished, &run.Valid, &run.Invalid, &run.Processed, &run.Failed, &errMsg); err != nil {
		return nil, err
	}
	run.Seed, _ = strconv.ParseUint(seed, 10, 64)
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	if errMsg.Valid {
		run.Error = &errMsg.String
	}
	return &run, nil
}
