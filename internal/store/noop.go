package store

import (
	"context"

	"github.com/seenimoa/mandisense/pkg/models"
)

// NoopRecorder discards records; used when no database is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (NoopRecorder) RecordPlan(_ context.Context, _ *models.PlanResult) (string, error) {
	return "", nil
}
func (NoopRecorder) RecordDigest(_ context.Context, _ []models.DigestEntry) error { return nil }
func (NoopRecorder) RecentPlans(_ context.Context, _ int) ([]models.PlanRecord, error) {
	return nil, nil
}
func (NoopRecorder) Close() error { return nil }
