package pipeline

import (
	"context"
	"sync"
)

// DomainLock serializes work per domain. Different domains never block each
// other. The zero value is ready to use.
type DomainLock struct {
	mu    sync.Mutex
	slots map[string]*domainSlot
}

type domainSlot struct {
	ch   chan struct{}
	refs int
}

// NewDomainLock creates a DomainLock.
func NewDomainLock() *DomainLock {
	return &DomainLock{}
}

// Lock blocks until domain is free or ctx is done. On success the returned
// function releases the domain and must be called exactly once.
func (l *DomainLock) Lock(ctx context.Context, domain string) (func(), error) {
	l.mu.Lock()
	if l.slots == nil {
		l.slots = make(map[string]*domainSlot)
	}
	slot, ok := l.slots[domain]
	if !ok {
		slot = &domainSlot{ch: make(chan struct{}, 1)}
		l.slots[domain] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(domain, slot)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.ch
			l.release(domain, slot)
		})
	}, nil
}

// release drops one reference and forgets idle domains.
func (l *DomainLock) release(domain string, slot *domainSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, domain)
	}
}

// size returns the number of tracked domains.
func (l *DomainLock) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
