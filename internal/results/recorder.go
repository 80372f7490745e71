package results

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	recorderQueue     = 1024
	recorderBatch     = 50
	recorderInterval  = 5 * time.Second
	recorderWriteTime = 10 * time.Second
)

// Recorder writes completed rounds to a Store in the background so the
// session loop never waits on the database
type Recorder struct {
	store  Store
	log    *zap.SugaredLogger
	rounds chan Round
	stop   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup

	interval time.Duration
}

// NewRecorder creates and starts the background writer
func NewRecorder(store Store, log *zap.SugaredLogger) *Recorder {
	return newRecorder(store, log, recorderInterval)
}

func newRecorder(store Store, log *zap.SugaredLogger, interval time.Duration) *Recorder {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	r := &Recorder{
		store:    store,
		log:      log.Named("results"),
		rounds:   make(chan Round, recorderQueue),
		stop:     make(chan struct{}),
		interval: interval,
	}
	r.wg.Add(1)
	go r.writer()
	return r
}

// Track enqueues a round for persistence. A full queue drops it.
func (r *Recorder) Track(round Round) {
	select {
	case r.rounds <- round:
	default:
		r.log.Warnw("results queue full, dropping round", "reason", round.Reason)
	}
}

// Stop flushes queued rounds and stops the writer
func (r *Recorder) Stop() {
	r.once.Do(func() { close(r.stop) })
	r.wg.Wait()
}

func (r *Recorder) writer() {
	defer r.wg.Done()

	batch := make([]Round, 0, recorderBatch)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case round := <-r.rounds:
			batch = append(batch, round)
			if len(batch) >= recorderBatch {
				r.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				r.flush(batch)
				batch = batch[:0]
			}
		case <-r.stop:
			for {
				select {
				case round := <-r.rounds:
					batch = append(batch, round)
				default:
					r.flush(batch)
					return
				}
			}
		}
	}
}

func (r *Recorder) flush(batch []Round) {
	if r.store == nil || len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recorderWriteTime)
	defer cancel()
	if err := r.store.SaveRounds(ctx, batch); err != nil {
		r.log.Errorw("save rounds", "count", len(batch), "err", err)
		return
	}
	r.log.Debugw("rounds saved", "count", len(batch))
}
