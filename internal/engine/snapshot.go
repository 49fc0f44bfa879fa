package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"gocha/internal/models"
	"gocha/internal/monitoring"
	"gocha/internal/orders"
)

// QueryService fetches the full order list for a venue.
type QueryService interface {
	FetchOrders(ctx context.Context, venueID string) ([]models.OrderPayload, error)
}

// SnapshotLoader pulls a point-in-time order list and merges it into the
// collection. Loads are idempotent and safe to run concurrently: the merge is
// commutative and monotone, so overlapping loads cannot regress anything.
type SnapshotLoader struct {
	svc     QueryService
	coll    *orders.Collection
	metrics *monitoring.Metrics
	log     *zap.Logger
}

// NewSnapshotLoader creates a loader feeding coll from svc.
func NewSnapshotLoader(svc QueryService, coll *orders.Collection, metrics *monitoring.Metrics, log *zap.Logger) *SnapshotLoader {
	if log == nil {
		log = zap.NewNop()
	}
	return &SnapshotLoader{
		svc:     svc,
		coll:    coll,
		metrics: metrics,
		log:     log.With(zap.String("component", "snapshot")),
	}
}

// Load fetches the venue's orders and merges them in. On fetch failure the
// collection is left exactly as it was. Rows that cannot be normalized are
// dropped individually without aborting the batch.
func (l *SnapshotLoader) Load(ctx context.Context, venueID string) error {
	payloads, err := l.svc.FetchOrders(ctx, venueID)
	if err != nil {
		if l.metrics != nil {
			l.metrics.SnapshotLoads.WithLabelValues(monitoring.ResultError).Inc()
		}
		l.log.Warn("snapshot load failed", zap.String("venue", venueID), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	// The session may have been torn down while the fetch was in flight;
	// a late result must not touch the collection.
	if ctx.Err() != nil {
		return ctx.Err()
	}

	recs := make([]*models.OrderRecord, 0, len(payloads))
	for _, p := range payloads {
		rec, err := models.FromSnapshot(p)
		if err != nil {
			if l.metrics != nil {
				l.metrics.InputsDropped.WithLabelValues(monitoring.SourceSnapshot).Inc()
			}
			l.log.Warn("snapshot row dropped", zap.Error(err))
			continue
		}
		recs = append(recs, rec)
	}

	l.coll.MergeSnapshot(recs)
	if l.metrics != nil {
		l.metrics.SnapshotLoads.WithLabelValues(monitoring.ResultOK).Inc()
		l.metrics.OrdersIngested.WithLabelValues(monitoring.SourceSnapshot).Add(float64(len(recs)))
	}
	l.log.Info("snapshot merged", zap.String("venue", venueID), zap.Int("rows", len(recs)))
	return nil
}
