package io

import (
	"context"
	"sync"
)

type Producer interface {
	Produce(ctx context.Context, work chan *WorkUnit, wg *sync.WaitGroup)
}

type Consumer interface {
	Consume(ctx context.Context, work chan *WorkUnit, results chan *DownloadResult, wg *sync.WaitGroup)
}
