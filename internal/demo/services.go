package demo

import (
	"context"
	"fmt"

	"github.com/roach88/reflux/internal/loop"
	"github.com/roach88/reflux/internal/services"
)

// ServiceOptions selects how the application's services do their work.
type ServiceOptions struct {
	// Backend persists the count. Default: a fresh memory backend.
	Backend services.Backend

	// AsyncStorage runs backend calls on a background goroutine.
	AsyncStorage bool
}

// Services returns the application's services in install order.
func Services(sched services.Scheduler, poster services.Poster, opts ServiceOptions) []loop.Service {
	backend := opts.Backend
	if backend == nil {
		backend = services.NewMemoryBackend()
	}

	var storageOpts []services.StorageOption
	if opts.AsyncStorage {
		storageOpts = append(storageOpts, services.WithAsync(poster))
	}

	return []loop.Service{
		services.SequencedService(),
		services.TimeService(sched),
		services.DebounceService(sched),
		services.StorageService(backend, storageOpts...),
		services.WorkerService(poster, map[string]services.WorkFunc{
			DoubleWork: doubleWork,
		}),
	}
}

func doubleWork(ctx context.Context, data any) (any, error) {
	n, ok := data.(int)
	if !ok {
		return nil, fmt.Errorf("double: want int, got %T", data)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return n * 2, nil
}
