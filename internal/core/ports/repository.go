package ports

import (
	"context"

	"github.com/ooi-data/ooi-hyd-tools/internal/core/domain"
)

// RunRepository persists day run manifests.
type RunRepository interface {
	SaveRun(ctx context.Context, run domain.RunRecord) error
	GetRun(ctx context.Context, id string) (domain.RunRecord, error)
	ListRuns(ctx context.Context, refdes string, limit int) ([]domain.RunRecord, error)
}
