package accessgrants

import (
	"context"
	"sync"
	"time"

	"consent-records/internal/platform/logger"
)

// Sweeper corre SweepExpired periódicamente en background.
type Sweeper struct {
	svc      *Service
	log      logger.Logger
	interval time.Duration

	mu       sync.Mutex
	started  bool
	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

func NewSweeper(svc *Service, log logger.Logger, interval time.Duration) *Sweeper {
	if log == nil {
		log = logger.Nop()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		svc:      svc,
		log:      log.With(map[string]any{"component": "expiry_sweeper"}),
		interval: interval,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start lanza la goroutine; la primera pasada es inmediata.
func (w *Sweeper) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return
	}
	w.started = true

	w.log.Info("starting expiry sweeper", map[string]any{"interval": w.interval.String()})
	go w.run(ctx)
}

// Stop detiene la goroutine y espera a que termine.
func (w *Sweeper) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })

	w.mu.Lock()
	started := w.started
	w.mu.Unlock()
	if started {
		<-w.done
	}
}

// RunOnce ejecuta una pasada (usado por el comando sweep).
func (w *Sweeper) RunOnce(ctx context.Context) int {
	n, err := w.svc.SweepExpired(ctx)
	if err != nil {
		w.log.Error("expiry sweep failed", map[string]any{"err": err, "processed": n})
		return n
	}
	if n > 0 {
		w.log.Info("expired grants audited", map[string]any{"count": n})
	}
	return n
}

func (w *Sweeper) run(ctx context.Context) {
	defer close(w.done)

	w.RunOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.RunOnce(ctx)
		case <-w.stopChan:
			w.log.Info("expiry sweeper stopped", nil)
			return
		case <-ctx.Done():
			w.log.Info("expiry sweeper cancelled", nil)
			return
		}
	}
}
