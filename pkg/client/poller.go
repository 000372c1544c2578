package client

import (
	"context"
	"sync"
	"time"
)

const DefaultPollInterval = 5 * time.Second

// Poller refresca la conversación seleccionada cada Interval.
// Select cambia de conversación; Stop o cancelar el ctx la cierra.
type Poller struct {
	c        *Client
	interval time.Duration
	onBatch  func(userID string, msgs []Message)
	onError  func(err error)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type PollerOption func(*Poller)

func WithPollInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithPollErrors recibe los errores de cada vuelta; el poller sigue corriendo.
func WithPollErrors(fn func(err error)) PollerOption {
	return func(p *Poller) { p.onError = fn }
}

// NewPoller: onBatch recibe la conversación completa, ordenada por SentAt.
func NewPoller(c *Client, onBatch func(userID string, msgs []Message), opts ...PollerOption) *Poller {
	p := &Poller{
		c:        c,
		interval: DefaultPollInterval,
		onBatch:  onBatch,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Select reemplaza la conversación que se está refrescando. La primera carga es inmediata.
// El cambio de vuelta se hace bajo el lock: con Selects concurrentes cada uno
// detiene la vuelta que desplazó y queda corriendo solo la última.
//
// No llamar Select ni Stop desde onBatch u onError: esperan a que termine esa misma vuelta.
func (p *Poller) Select(ctx context.Context, userID string) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	p.mu.Lock()
	prevCancel, prevDone := p.cancel, p.done
	p.cancel, p.done = cancel, done
	p.mu.Unlock()

	stopRun(prevCancel, prevDone)
	go p.run(ctx, userID, done)
}

// Stop detiene el refresco y espera a que termine la vuelta en curso.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	stopRun(cancel, done)
}

func stopRun(cancel context.CancelFunc, done chan struct{}) {
	if cancel != nil {
		cancel()
		<-done
	}
}

func (p *Poller) run(ctx context.Context, userID string, done chan struct{}) {
	defer close(done)

	t := time.NewTicker(p.interval)
	defer t.Stop()

	p.poll(ctx, userID)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.poll(ctx, userID)
		}
	}
}

func (p *Poller) poll(ctx context.Context, userID string) {
	msgs, err := p.c.Conversation(ctx, userID)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		if p.onError != nil {
			p.onError(err)
		}
		return
	}
	if p.onBatch != nil {
		p.onBatch(userID, msgs)
	}
}
