package schedext

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scxtools/kernelctl/pkg/kernelctl/logging"
)

// DefaultPollInterval is how often the poller re-reads sysfs.
const DefaultPollInterval = time.Second

// Status is one poller observation.
type Status struct {
	Value   string
	Enabled bool
	At      time.Time
}

// Subscription receives poller observations. Updates is closed when the
// subscription is cancelled or the poller stops.
type Subscription struct {
	ID      string
	Updates chan Status
}

// Poller reads the scheduler status on a fixed interval and broadcasts
// every observation to all subscribers, changed or not. Subscribers that
// fall behind miss observations rather than blocking the poll loop.
type Poller struct {
	reader   StatusReader
	interval time.Duration

	mu          sync.RWMutex
	subscribers map[string]*Subscription
	last        Status
	closed      bool

	done chan struct{}
}

// NewPoller creates a poller over the given reader. A zero interval uses
// DefaultPollInterval.
func NewPoller(reader StatusReader, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		reader:      reader,
		interval:    interval,
		subscribers: make(map[string]*Subscription),
		done:        make(chan struct{}),
	}
}

// Start launches the poll loop. An initial observation is taken before the
// first tick so subscribers never wait a full interval for state.
func (p *Poller) Start(ctx context.Context) {
	go p.loop(ctx)
}

// Done is closed when the poll loop has exited.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

// Last returns the most recent observation.
func (p *Poller) Last() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}

// Subscribe registers for status observations.
func (p *Poller) Subscribe() *Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	sub := &Subscription{
		ID:      uuid.NewString(),
		Updates: make(chan Status, 16),
	}
	p.subscribers[sub.ID] = sub
	return sub
}

// Unsubscribe cancels a subscription and closes its channel.
func (p *Poller) Unsubscribe(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if sub, ok := p.subscribers[id]; ok {
		close(sub.Updates)
		delete(p.subscribers, id)
	}
}

// SubscriberCount returns the number of active subscriptions.
func (p *Poller) SubscriberCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subscribers)
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)
	defer p.closeSubscribers()

	log := logging.Get("schedext")
	log.Debug("status poller started", "interval", p.interval)

	p.observe()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug("status poller stopped")
			return
		case <-ticker.C:
			p.observe()
		}
	}
}

// observe reads sysfs once and broadcasts the observation.
func (p *Poller) observe() {
	status := Status{
		Value:   p.reader.Current(),
		Enabled: p.reader.Enabled(),
		At:      time.Now(),
	}

	p.mu.Lock()
	p.last = status
	subs := make([]*Subscription, 0, len(p.subscribers))
	for _, sub := range p.subscribers {
		subs = append(subs, sub)
	}
	p.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub.Updates <- status:
		default:
			// Subscriber is behind; drop this observation for it.
		}
	}
}

func (p *Poller) closeSubscribers() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	for _, sub := range p.subscribers {
		close(sub.Updates)
	}
	p.subscribers = make(map[string]*Subscription)
}
