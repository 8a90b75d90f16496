package history

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Recorder assigns ids to exchanges and writes them to storage. Recording
// is best-effort: a storage failure is logged and never surfaces to the
// request path.
type Recorder struct {
	storage Storage
	logger  *slog.Logger
}

// NewRecorder creates a recorder over the given storage.
func NewRecorder(storage Storage) *Recorder {
	return &Recorder{
		storage: storage,
		logger:  slog.Default().With("component", "history"),
	}
}

// Record persists one exchange summary.
func (r *Recorder) Record(ctx context.Context, ex Exchange) {
	ex.ID = uuid.New().String()
	if ex.CompletedAt.IsZero() {
		ex.CompletedAt = time.Now()
	}

	if err := r.storage.Save(ctx, &ex); err != nil {
		r.logger.Warn("failed to record exchange",
			"conn_id", ex.ConnID,
			"method", ex.Method,
			"path", ex.Path,
			"error", err,
		)
	}
}

// Storage exposes the underlying storage, for queries and retention.
func (r *Recorder) Storage() Storage {
	return r.storage
}
