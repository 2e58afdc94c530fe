// Package journal persists render-loop traces.
//
// A Recorder turns stamped updates into store records whose payload is the
// canonical JSON of the action, state or effect the update carries. Writing
// never interrupts the loop: failures are logged and counted.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/reflux/internal/canonical"
	"github.com/roach88/reflux/internal/engine"
	"github.com/roach88/reflux/internal/loop"
	"github.com/roach88/reflux/internal/store"
)

// Writer accepts journal records. *store.Store implements it.
type Writer interface {
	WriteRecord(ctx context.Context, rec store.Record) error
}

// Option configures a Recorder.
type Option func(*options)

type options struct {
	logger *slog.Logger
	ctx    context.Context
}

// WithLogger sets the logger used to report write failures.
// Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithContext sets the context passed to the Writer. Default: Background.
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		o.ctx = ctx
	}
}

// Recorder writes stamped updates to a Writer.
type Recorder[S any] struct {
	w        Writer
	opts     options
	written  atomic.Int64
	failures atomic.Int64
}

// NewRecorder creates a Recorder writing to w.
func NewRecorder[S any](w Writer, opts ...Option) *Recorder[S] {
	o := options{logger: slog.Default(), ctx: context.Background()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Recorder[S]{w: w, opts: o}
}

// Record converts u and writes it. Suitable as an engine.RunLoop listener.
func (r *Recorder[S]) Record(u engine.Stamped[S]) {
	rec, err := ToRecord(u)
	if err == nil {
		err = r.w.WriteRecord(r.opts.ctx, rec)
	}
	if err != nil {
		r.failures.Add(1)
		r.opts.logger.Error("journal write failed",
			"run_id", u.RunID,
			"seq", u.Seq,
			"kind", string(u.Kind),
			"error", err,
		)
		return
	}
	r.written.Add(1)
}

// Written returns how many records were written successfully.
func (r *Recorder[S]) Written() int64 {
	return r.written.Load()
}

// Failures returns how many records could not be encoded or written.
func (r *Recorder[S]) Failures() int64 {
	return r.failures.Load()
}

// ToRecord converts a stamped update into a journal record.
func ToRecord[S any](u engine.Stamped[S]) (store.Record, error) {
	rec := store.Record{
		RunID: u.RunID,
		Seq:   u.Seq,
		Kind:  string(u.Kind),
		Type:  u.Type(),
	}

	var payload any
	switch u.Kind {
	case loop.KindAction:
		payload = u.Action
	case loop.KindState:
		payload = u.State
	case loop.KindEffect:
		payload = u.Effect
	default:
		rec.Payload = json.RawMessage("null")
		return rec, nil
	}

	data, err := canonical.Marshal(payload)
	if err != nil {
		return store.Record{}, fmt.Errorf("encode %s payload: %w", u.Kind, err)
	}
	rec.Payload = data
	return rec, nil
}
