package telemetry

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// recordTimeout bounds one async insert. Flush waits at most this long
// per in-flight event during shutdown.
const recordTimeout = 5 * time.Second

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Recorder appends telemetry events, fire-and-forget. Persistence
// failures are logged locally and never reach the caller; there are no
// retries.
type Recorder struct {
	db     execer
	logger *slog.Logger
	wg     sync.WaitGroup
}

func NewRecorder(log *slog.Logger, db execer) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{
		db:     db,
		logger: log.With(slog.String("service", "telemetry")),
	}
}

// Record persists event asynchronously. It detaches from the caller's
// context so an aborted webhook request does not lose the row.
func (r *Recorder) Record(event Event) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := r.insert(ctx, event); err != nil {
			r.logger.Warn("telemetry insert failed",
				slog.String("session_id", event.SessionID),
				slog.String("event_type", string(event.EventType)),
				slog.Any("error", err))
		}
	}()
}

// Flush waits for in-flight events; called on shutdown.
func (r *Recorder) Flush() {
	r.wg.Wait()
}

func (r *Recorder) insert(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}

	var metadata []byte
	if event.Metadata != nil {
		metadata, err = json.Marshal(event.Metadata)
		if err != nil {
			return err
		}
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO telemetry_logs (id, session_id, event_type, payload, metadata) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), event.SessionID, string(event.EventType), payload, metadata)
	return err
}
