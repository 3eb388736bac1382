package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// QuotaAccumulatorInterface credits an implemented proposal's value to the
// sales quota of the proposal's creator. The accumulator is an external
// collaborator; the engine only triggers it.
type QuotaAccumulatorInterface interface {
	Accumulate(ctx context.Context, ownerID uuid.UUID, value float64) error
}

type logQuotaAccumulator struct {
	logger *zap.Logger
}

func NewLogQuotaAccumulator(logger *zap.Logger) QuotaAccumulatorInterface {
	return &logQuotaAccumulator{logger: logger}
}

func (q *logQuotaAccumulator) Accumulate(ctx context.Context, ownerID uuid.UUID, value float64) error {
	q.logger.Info("accumulating quota",
		zap.String("owner_id", ownerID.String()),
		zap.Float64("value", value),
	)
	return nil
}
