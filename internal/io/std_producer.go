package io

import (
	"context"
	"sync"

	"github.com/ecopia-map/cesium_fetcher/internal/resolver"
)

type StandardProducer struct {
	candidates []resolver.Candidate
}

func NewStandardProducer(candidates []resolver.Candidate) *StandardProducer {
	return &StandardProducer{
		candidates: candidates,
	}
}

// Submits a WorkUnit per candidate to the work channel, in order, then closes the channel. Stops submitting
// when ctx is cancelled.
func (p *StandardProducer) Produce(ctx context.Context, work chan *WorkUnit, wg *sync.WaitGroup) {
	defer wg.Done()
	defer close(work)

	for i, candidate := range p.candidates {
		select {
		case work <- &WorkUnit{Index: i, Candidate: candidate}:
		case <-ctx.Done():
			return
		}
	}
}
