package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/reflux/internal/loop"
	"github.com/roach88/reflux/internal/reduce"
	"github.com/roach88/reflux/internal/stream"
)

const (
	StoreDataType   = "store-data"
	RequestDataType = "request-data"
	ClearDataType   = "clear-data"
	CancelLoadType  = "cancel-load"
	LoadDataType    = "load-data"
)

// StoreData persists Data, encoded as JSON, under Key.
type StoreData struct {
	Key  string
	Data any
}

// EffectType implements reduce.SideEffect.
func (StoreData) EffectType() string { return StoreDataType }

// RequestData asks for the value stored under Key. The answer arrives as a
// LoadData action.
type RequestData struct {
	Key string
}

// EffectType implements reduce.SideEffect.
func (RequestData) EffectType() string { return RequestDataType }

// ClearData removes every stored value.
type ClearData struct{}

// EffectType implements reduce.SideEffect.
func (ClearData) EffectType() string { return ClearDataType }

// CancelLoad discards the answer to any outstanding RequestData for Key.
type CancelLoad struct {
	Key string
}

// EffectType implements reduce.SideEffect.
func (CancelLoad) EffectType() string { return CancelLoadType }

// LoadData answers a RequestData. Found is false when nothing was stored or
// the backend failed.
type LoadData struct {
	Key   string
	Data  json.RawMessage
	Found bool
}

// ActionType implements reduce.Action.
func (LoadData) ActionType() string { return LoadDataType }

// Decode unmarshals the loaded JSON into v.
func (l LoadData) Decode(v any) error {
	if !l.Found {
		return fmt.Errorf("decode %s: no data loaded", l.Key)
	}
	return json.Unmarshal(l.Data, v)
}

// Backend is a key/value store for encoded values.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Clear(ctx context.Context) error
}

// storageBacklog is how many requests may wait for the background goroutine
// before issuing another one blocks.
const storageBacklog = 256

// StorageOption configures StorageService.
type StorageOption func(*storageConfig)

type storageConfig struct {
	poster Poster
}

// WithAsync moves backend calls onto a background goroutine. Requests are
// executed in the order they were issued and answers are posted back
// through p.
func WithAsync(p Poster) StorageOption {
	return func(c *storageConfig) {
		c.poster = p
	}
}

// StorageService implements StoreData, RequestData, ClearData and CancelLoad
// on top of a Backend.
//
// Without WithAsync every call runs synchronously and LoadData is emitted
// before the RequestData delivery returns. With WithAsync each key carries a
// version; an answer is only dispatched if no later RequestData or
// CancelLoad for its key was issued in the meantime.
func StorageService(b Backend, opts ...StorageOption) loop.Service {
	var cfg storageConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	return service(func(effects stream.Subscriber[reduce.SideEffect], dispatch func(reduce.Message), sub *stream.Subscription) {
		ctx, cancel := context.WithCancel(context.Background())
		sub.AddFunc(cancel)
		versions := make(map[string]uint64)

		load := func(key string) LoadData {
			data, found, err := b.Get(ctx, key)
			if err != nil {
				slog.Warn("storage load failed", "key", key, "error", err)
				return LoadData{Key: key}
			}
			return LoadData{Key: key, Data: data, Found: found}
		}

		exec := func(f func()) { f() }
		if cfg.poster != nil {
			exec = startStorageWorker(ctx, storageBacklog, sub)
		}

		sub.Add(effects.Subscribe(func(e reduce.SideEffect) {
			switch e := e.(type) {
			case ClearData:
				exec(func() {
					if err := b.Clear(ctx); err != nil {
						slog.Warn("storage clear failed", "error", err)
					}
				})

			case StoreData:
				raw, err := json.Marshal(e.Data)
				if err != nil {
					slog.Error("storage encode failed", "key", e.Key, "error", err)
					return
				}
				exec(func() {
					if err := b.Set(ctx, e.Key, raw); err != nil {
						slog.Warn("storage store failed", "key", e.Key, "error", err)
					}
				})

			case CancelLoad:
				versions[e.Key]++

			case RequestData:
				versions[e.Key]++
				version := versions[e.Key]

				if cfg.poster == nil {
					dispatch(load(e.Key))
					return
				}

				exec(func() {
					loaded := load(e.Key)
					cfg.poster.Post(func() {
						if versions[e.Key] != version {
							slog.Debug("dropping stale load", "key", e.Key, "version", version)
							return
						}
						dispatch(loaded)
					})
				})
			}
		}))
	})
}

// startStorageWorker starts the goroutine that executes backend calls in
// FIFO order. Its shutdown is registered on sub; requests still queued when
// ctx is cancelled are skipped.
func startStorageWorker(ctx context.Context, backlog int, sub *stream.Subscription) func(func()) {
	requests := make(chan func(), backlog)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for req := range requests {
			if ctx.Err() != nil {
				continue
			}
			req()
		}
	}()

	closed := false
	sub.AddFunc(func() {
		closed = true
		close(requests)
		wg.Wait()
	})

	return func(f func()) {
		if closed {
			return
		}
		requests <- f
	}
}
