package export

import (
	"context"

	"finsight/internal/storage"
)

// Ports for outbound adapters.
type (
	// SnapshotWriter appends a metric snapshot to an external destination.
	SnapshotWriter interface {
		Append(ctx context.Context, s storage.MetricSnapshot) (rowRef string, err error)
	}
)
