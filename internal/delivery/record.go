package delivery

import (
	"context"

	"github.com/tribunal-dev/tribunal/internal/core"
)

// RecordStore persists delivery records across runs. Load returns an empty
// record, never an error, when no record exists yet for the change.
type RecordStore interface {
	Load(ctx context.Context, repoFull string, prNumber int) (*core.DeliveryRecord, error)
	Save(ctx context.Context, rec *core.DeliveryRecord) error
}
