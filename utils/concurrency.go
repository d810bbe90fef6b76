package utils

import (
	"sync"
	"time"
)

// WorkerPool bounds concurrent job execution and optionally spaces job
// starts by a minimum interval (for polite scraping). A rate limit of 0
// disables spacing.
type WorkerPool struct {
	rateLimit time.Duration
	semaphore chan struct{}
	wg        sync.WaitGroup

	mu        sync.Mutex
	lastStart time.Time
}

// NewWorkerPool creates a pool with the given concurrency and per-start
// rate limit in milliseconds.
func NewWorkerPool(maxWorkers, rateLimitMs int) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkerPool{
		rateLimit: time.Duration(rateLimitMs) * time.Millisecond,
		semaphore: make(chan struct{}, maxWorkers),
	}
}

// Submit enqueues a job. It may block briefly when all workers are busy.
func (wp *WorkerPool) Submit(job func()) {
	wp.wg.Add(1)
	wp.semaphore <- struct{}{}

	go func() {
		defer wp.wg.Done()
		defer func() { <-wp.semaphore }()

		wp.pace()
		job()
	}()
}

// Wait blocks until every submitted job has completed.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

// pace enforces the minimum interval between job starts.
func (wp *WorkerPool) pace() {
	if wp.rateLimit <= 0 {
		return
	}

	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wait := wp.rateLimit - time.Since(wp.lastStart); wait > 0 {
		time.Sleep(wait)
	}
	wp.lastStart = time.Now()
}

// URLSet is a thread-safe set used for within-source ad deduplication.
type URLSet struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewURLSet creates an empty URLSet.
func NewURLSet() *URLSet {
	return &URLSet{seen: make(map[string]struct{})}
}

// Add returns true if the URL was newly added, false if already present.
func (s *URLSet) Add(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[url]; exists {
		return false
	}
	s.seen[url] = struct{}{}
	return true
}

// Contains returns true if the URL was seen before.
func (s *URLSet) Contains(url string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.seen[url]
	return exists
}

// Size returns the number of unique URLs tracked.
func (s *URLSet) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}
