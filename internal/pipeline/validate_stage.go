package pipeline

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/ocr-dataset-prep/internal/async"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/entity"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/validator"
)

// ValidateStage checks every parsed record on the worker pool.
type ValidateStage struct {
	Logger    *slog.Logger
	Validator *validator.Validator
	Pool      *async.Pool
}

func NewValidateStage(v *validator.Validator, pool *async.Pool, logger *slog.Logger) *ValidateStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &ValidateStage{Logger: logger, Validator: v, Pool: pool}
}

// Run returns one ValidatedPair per record, in record order.
func (s *ValidateStage) Run(ctx context.Context, records []entity.LabelRecord) ([]entity.ValidatedPair, async.Tally, error) {
	pairs, tally, err := async.Map(ctx, s.Pool, "validate", records, func(ctx context.Context, rec entity.LabelRecord) (entity.ValidatedPair, bool) {
		p := s.Validator.Validate(ctx, rec)
		return p, p.Valid
	})
	if err != nil {
		return nil, tally, err
	}
	for _, p := range pairs {
		if !p.Valid {
			s.Logger.Warn("pipeline.validate.invalid", "line", p.Record.Line, "image", p.Record.ImageRef, "reason", p.Reason)
		}
	}
	s.Logger.Info("pipeline.validate.ok", "valid", tally.Succeeded, "invalid", tally.Failed)
	return pairs, tally, nil
}

// ValidOnly keeps the valid pairs in order.
func ValidOnly(pairs []entity.ValidatedPair) []entity.ValidatedPair {
	out := make([]entity.ValidatedPair, 0, len(pairs))
	for _, p := range pairs {
		if p.Valid {
			out = append(out, p)
		}
	}
	return out
}
