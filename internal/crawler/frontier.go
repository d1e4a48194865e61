package crawler

import "sync"

// Frontier owns the crawl queue and the visited set.
//
// A URL moves through three states: queued, in flight, visited. A URL that
// failed is released from flight and becomes eligible again if it is
// rediscovered later. A visited URL is never queued again.
//
// Every transition happens under one mutex; the check-then-insert in Push
// must be atomic.
type Frontier struct {
	mu       sync.Mutex
	queue    []string
	queued   map[string]bool
	inflight map[string]bool
	visited  map[string]bool
}

// NewFrontier creates a frontier seeded with the given URLs.
func NewFrontier(seeds ...string) *Frontier {
	f := &Frontier{
		queue:    make([]string, 0, len(seeds)),
		queued:   make(map[string]bool),
		inflight: make(map[string]bool),
		visited:  make(map[string]bool),
	}
	for _, s := range seeds {
		f.Push(s)
	}
	return f
}

// Push appends u to the back of the queue unless it is already visited,
// queued or in flight. It reports whether u was added.
func (f *Frontier) Push(u string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.visited[u] || f.queued[u] || f.inflight[u] {
		return false
	}
	f.queue = append(f.queue, u)
	f.queued[u] = true
	return true
}

// Pop removes and returns the front of the queue.
// It returns false when the queue is empty.
func (f *Frontier) Pop() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.queue) == 0 {
		return "", false
	}
	u := f.queue[0]
	f.queue[0] = ""
	f.queue = f.queue[1:]
	delete(f.queued, u)
	return u, true
}

// Begin marks u as in flight. It reports false if u is already visited or
// in flight, in which case the caller must not fetch it.
func (f *Frontier) Begin(u string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.visited[u] || f.inflight[u] {
		return false
	}
	f.inflight[u] = true
	return true
}

// Complete moves u from in flight to visited.
func (f *Frontier) Complete(u string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.inflight, u)
	f.visited[u] = true
}

// Release takes u out of flight without marking it visited.
func (f *Frontier) Release(u string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.inflight, u)
}

// IsVisited reports whether u has been visited.
func (f *Frontier) IsVisited(u string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visited[u]
}

// Visited returns the number of visited URLs.
func (f *Frontier) Visited() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.visited)
}

// InFlight returns the number of URLs currently being fetched.
func (f *Frontier) InFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inflight)
}

// Len returns the number of queued URLs.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}
