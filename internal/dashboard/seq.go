package dashboard

import (
	"context"
	"sync"
)

// FetchSeq hands out monotonically increasing sequence numbers for report
// fetches and cancels the previous in-flight fetch for the same key. A
// completed fetch whose sequence is no longer the latest issued must be
// discarded, otherwise a slow early request can overwrite the result of a
// later one.
//
// Sequence numbers are drawn from one counter shared across keys and never
// reused, so both maps hold entries only for fetches still in flight.
type FetchSeq struct {
	mu     sync.Mutex
	next   uint64
	seq    map[string]uint64
	cancel map[string]context.CancelFunc
}

// NewFetchSeq creates an empty guard
func NewFetchSeq() *FetchSeq {
	return &FetchSeq{
		seq:    make(map[string]uint64),
		cancel: make(map[string]context.CancelFunc),
	}
}

// Begin registers a new fetch for key, cancelling any fetch still in flight
// for the same key. The returned context governs the new fetch.
func (f *FetchSeq) Begin(ctx context.Context, key string) (context.Context, uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if cancel, ok := f.cancel[key]; ok {
		cancel()
	}

	f.next++
	seq := f.next
	f.seq[key] = seq

	ctx, cancel := context.WithCancel(ctx)
	f.cancel[key] = cancel
	return ctx, seq
}

// Done reports whether the fetch with the given sequence is still the
// latest issued for key, releasing the key's entries if so.
func (f *FetchSeq) Done(key string, seq uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.seq[key] != seq {
		return false
	}
	delete(f.seq, key)
	if cancel, ok := f.cancel[key]; ok {
		cancel()
		delete(f.cancel, key)
	}
	return true
}
