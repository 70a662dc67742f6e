package password

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"
)

// ErrPoolClosed is returned once Close has been called.
var ErrPoolClosed = errors.New("password pool closed")

// Pool bounds concurrent hashing work and runs it off the calling goroutine.
type Pool struct {
	hasher Hasher
	sem    *semaphore.Weighted
	size   int64

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

type hashResult struct {
	digest string
	ok     bool
	err    error
}

// NewPool wraps hasher with a pool of size workers. size <= 0 uses GOMAXPROCS.
func NewPool(hasher Hasher, size int) *Pool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	return &Pool{
		hasher: hasher,
		sem:    semaphore.NewWeighted(int64(size)),
		size:   int64(size),
	}
}

// Size returns the maximum number of concurrent hashing goroutines.
func (p *Pool) Size() int {
	return int(p.size)
}

// Hash digests password on a pool worker.
func (p *Pool) Hash(ctx context.Context, password string) (string, error) {
	res, err := p.run(ctx, func() hashResult {
		digest, err := p.hasher.Hash(password)
		return hashResult{digest: digest, err: err}
	})
	if err != nil {
		return "", err
	}
	return res.digest, res.err
}

// Verify reports whether password matches encoded. A malformed digest is a mismatch; the
// only errors returned come from ctx or a closed pool.
func (p *Pool) Verify(ctx context.Context, password, encoded string) (bool, error) {
	res, err := p.run(ctx, func() hashResult {
		ok, err := p.hasher.Verify(password, encoded)
		return hashResult{ok: ok && err == nil}
	})
	if err != nil {
		return false, err
	}
	return res.ok, nil
}

// NeedsUpgrade is cheap and runs inline.
func (p *Pool) NeedsUpgrade(encoded string) bool {
	upgrade, err := p.hasher.NeedsUpgrade(encoded)
	return err == nil && upgrade
}

// Close rejects new work and waits for in-flight hashes to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) run(ctx context.Context, job func() hashResult) (hashResult, error) {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return hashResult{}, ErrPoolClosed
	}
	p.wg.Add(1)
	p.mu.RUnlock()

	if err := p.sem.Acquire(ctx, 1); err != nil {
		p.wg.Done()
		return hashResult{}, err
	}

	out := make(chan hashResult, 1)
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		out <- job()
	}()

	select {
	case res := <-out:
		return res, nil
	case <-ctx.Done():
		return hashResult{}, ctx.Err()
	}
}
