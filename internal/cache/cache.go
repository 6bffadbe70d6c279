// Package cache provides the in-process caches used by the ledger: a generic
// LRU with optional TTL and a janitor that sweeps expired entries.
package cache

import (
	"log/slog"
	"sync"
	"time"
)

// Cache is the behaviour shared by the ledger's caches.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner is implemented by caches whose entries can expire.
type Cleaner interface {
	CleanExpired() int
}

var _ Cache[int] = (*LRUCache[int])(nil)

// Janitor periodically sweeps registered caches.
type Janitor struct {
	mu       sync.Mutex
	caches   []Cleaner
	stop     chan struct{}
	done     chan struct{}
	started  bool
	stopOnce sync.Once
}

// NewJanitor creates an idle janitor; call Start to begin sweeping.
func NewJanitor() *Janitor {
	return &Janitor{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Register adds c to the sweep list.
func (j *Janitor) Register(c Cleaner) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.caches = append(j.caches, c)
}

// Sweep cleans every registered cache once and returns the number of
// entries removed.
func (j *Janitor) Sweep() int {
	j.mu.Lock()
	caches := append([]Cleaner(nil), j.caches...)
	j.mu.Unlock()

	total := 0
	for _, c := range caches {
		total += c.CleanExpired()
	}
	return total
}

// Start sweeps every interval until Stop is called.
func (j *Janitor) Start(interval time.Duration) {
	j.mu.Lock()
	if j.started {
		j.mu.Unlock()
		return
	}
	j.started = true
	j.mu.Unlock()

	go func() {
		defer close(j.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := j.Sweep(); n > 0 {
					slog.Debug("Cache sweep completed", "entries_removed", n)
				}
			case <-j.stop:
				return
			}
		}
	}()
}

// Stop ends the sweep loop started by Start and waits for it to exit.
func (j *Janitor) Stop() {
	j.stopOnce.Do(func() {
		close(j.stop)
		j.mu.Lock()
		started := j.started
		j.mu.Unlock()
		if started {
			<-j.done
		}
	})
}
