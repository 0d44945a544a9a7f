package comm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrAborted is returned from a collective when another rank of the World
// failed or the World's context was cancelled.
var ErrAborted = errors.New("comm: world aborted")

// Communicator is one rank's view of the World.
type Communicator interface {
	Rank() int
	Size() int
	// Allgather contributes v and returns every rank's contribution indexed
	// by rank. The returned slice is shared read-only between ranks.
	Allgather(v any) ([]any, error)
}

// World is a fixed-size group of in-process ranks.
//
// A World is single-use: after Run returns it stays aborted.
type World struct {
	size int

	mu      sync.Mutex
	cond    *sync.Cond
	slots   []any
	arrived int
	gen     uint64
	result  []any
	err     error
}

// NewWorld creates a World with size ranks.
func NewWorld(size int) *World {
	if size < 1 {
		panic(fmt.Sprintf("comm: world size must be >= 1, got %d", size))
	}
	w := &World{
		size:  size,
		slots: make([]any, size),
	}
	w.cond = sync.NewCond(&w.mu)
	return w
}

// Size returns the number of ranks.
func (w *World) Size() int { return w.size }

// Rank returns the communicator for rank r.
func (w *World) Rank(r int) Communicator {
	if r < 0 || r >= w.size {
		panic(fmt.Sprintf("comm: rank %d out of range [0, %d)", r, w.size))
	}
	return &rankComm{world: w, rank: r}
}

// Run executes fn once per rank, each on its own goroutine, and waits for
// all of them. The first error aborts the World and is returned.
func (w *World) Run(ctx context.Context, fn func(ctx context.Context, c Communicator) error) error {
	g, gctx := errgroup.WithContext(ctx)

	// gctx is cancelled on the first failure and when Wait returns.
	go func() {
		<-gctx.Done()
		w.abort(gctx.Err())
	}()

	for r := 0; r < w.size; r++ {
		c := w.Rank(r)
		g.Go(func() error {
			if err := fn(gctx, c); err != nil {
				w.abort(err)
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

func (w *World) abort(cause error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err == nil {
		if cause == nil {
			cause = context.Canceled
		}
		w.err = cause
	}
	w.cond.Broadcast()
}

// exchange deposits v for rank and blocks until every rank has deposited.
func (w *World) exchange(rank int, v any) ([]any, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAborted, w.err)
	}

	gen := w.gen
	w.slots[rank] = v
	w.arrived++

	if w.arrived == w.size {
		w.result = w.slots
		w.slots = make([]any, w.size)
		w.arrived = 0
		w.gen++
		w.cond.Broadcast()
		return w.result, nil
	}

	for w.gen == gen && w.err == nil {
		w.cond.Wait()
	}
	if w.gen == gen {
		return nil, fmt.Errorf("%w: %v", ErrAborted, w.err)
	}
	// The next generation cannot complete without this rank, so result
	// still belongs to gen+1.
	return w.result, nil
}

type rankComm struct {
	world *World
	rank  int
}

func (c *rankComm) Rank() int { return c.rank }
func (c *rankComm) Size() int { return c.world.size }

func (c *rankComm) Allgather(v any) ([]any, error) {
	return c.world.exchange(c.rank, v)
}
