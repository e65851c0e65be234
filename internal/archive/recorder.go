package archive

import (
	"context"
	"time"

	"github.com/DoyleJ11/number-duel-backend/internal/room"
	"go.uber.org/zap"
)

const saveTimeout = 5 * time.Second

// Recorder writes finished matches to a Store off the registry's goroutine.
type Recorder struct {
	store Store
	queue chan room.Result
	log   *zap.Logger
}

func NewRecorder(store Store, size int, log *zap.Logger) *Recorder {
	return &Recorder{
		store: store,
		queue: make(chan room.Result, size),
		log:   log.Named("archive"),
	}
}

// Record queues a result and never blocks; a full queue drops it.
func (r *Recorder) Record(res room.Result) {
	select {
	case r.queue <- res:
	default:
		r.log.Warn("archive queue full, dropping match", zap.String("room", res.RoomID))
	}
}

// Run saves queued matches until ctx ends, then flushes what is left.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			r.flush()
			return nil
		case res := <-r.queue:
			r.save(context.Background(), res)
		}
	}
}

func (r *Recorder) flush() {
	for {
		select {
		case res := <-r.queue:
			r.save(context.Background(), res)
		default:
			return
		}
	}
}

func (r *Recorder) save(parent context.Context, res room.Result) {
	ctx, cancel := context.WithTimeout(parent, saveTimeout)
	defer cancel()

	m := FromResult(res)
	if err := r.store.Save(ctx, &m); err != nil {
		r.log.Error("saving match failed", zap.String("room", res.RoomID), zap.Error(err))
		return
	}
	r.log.Info("match archived",
		zap.String("room", res.RoomID),
		zap.String("winner", res.Winner),
		zap.Uint("id", m.ID),
	)
}
