package harness

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/roach88/reflux/internal/engine"
	"github.com/roach88/reflux/internal/journal"
	"github.com/roach88/reflux/internal/loop"
	"github.com/roach88/reflux/internal/reduce"
	"github.com/roach88/reflux/internal/services"
	"github.com/roach88/reflux/internal/stream"
)

// ActionDecoder builds an action from scenario arguments.
type ActionDecoder func(args map[string]any) (reduce.Action, error)

// Definition describes an application scenarios can run.
type Definition[S any] struct {
	Name     string
	Initial  S
	Reducer  reduce.Reducer[S]
	Renderer loop.Renderer[S]

	// Services builds the application's services for one run. sched and
	// poster are backed by the harness's manual scheduler.
	Services func(sched services.Scheduler, poster services.Poster) []loop.Service

	// Actions maps dispatchable action types to their decoders.
	Actions map[string]ActionDecoder
}

// App is an application registered with the harness. Build one with Define.
type App interface {
	Name() string

	// DecodeAction builds the action named by actionType from args.
	DecodeAction(actionType string, args map[string]any) (reduce.Action, error)

	// ActionTypes lists the dispatchable action types, sorted.
	ActionTypes() []string

	start(env *session) func() any
}

// session is what a run hands to an App: where to attach, how to stamp,
// and where to write.
type session struct {
	root     *stream.Subscription
	runID    string
	clock    *engine.Clock
	sched    services.Scheduler
	poster   services.Poster
	inbox    *services.Inbox
	journal  journal.Writer
	logger   *slog.Logger
	failures func() int64
}

type app[S any] struct {
	def Definition[S]
}

// Define wraps d as an App.
func Define[S any](d Definition[S]) App {
	return &app[S]{def: d}
}

func (a *app[S]) Name() string {
	return a.def.Name
}

func (a *app[S]) DecodeAction(actionType string, args map[string]any) (reduce.Action, error) {
	decode, ok := a.def.Actions[actionType]
	if !ok {
		return nil, fmt.Errorf("app %s: unknown action type %q", a.def.Name, actionType)
	}
	action, err := decode(args)
	if err != nil {
		return nil, fmt.Errorf("app %s: decode %s: %w", a.def.Name, actionType, err)
	}
	return action, nil
}

func (a *app[S]) ActionTypes() []string {
	types := make([]string, 0, len(a.def.Actions))
	for t := range a.def.Actions {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// start mounts a session of the application on env.root and returns a
// function reporting the latest state.
func (a *app[S]) start(env *session) func() any {
	var svcs []loop.Service
	if a.def.Services != nil {
		svcs = a.def.Services(env.sched, env.poster)
	}
	svcs = append(svcs, env.inbox.Service())

	renderer := a.def.Renderer
	if renderer == nil {
		renderer = FlushRenderer[S]
	}

	l := loop.New(renderer, GuardMutations(a.def.Reducer), svcs, a.def.Initial, loop.WithLogger(env.logger))
	recorder := journal.NewRecorder[S](env.journal, journal.WithLogger(env.logger))
	env.failures = recorder.Failures

	last := a.def.Initial
	l.SubscribeInto(env.root, func(u loop.Update[S]) {
		if u.Kind == loop.KindState {
			last = u.State
		}
		recorder.Record(engine.Stamped[S]{RunID: env.runID, Seq: env.clock.Next(), Update: u})
	})

	return func() any { return last }
}

// FlushRenderer renders nothing and drains the effect queue every cycle.
func FlushRenderer[S any](_ S, _ func(reduce.Action), flush func()) {
	flush()
}

// ActionOf decodes args into a zero A. Keys match the field's json tag or,
// case-insensitively, its name. Unknown keys are an error; durations may be
// written as strings such as "1s".
func ActionOf[A reduce.Action]() ActionDecoder {
	return func(args map[string]any) (reduce.Action, error) {
		var a A
		if err := DecodeArgs(args, &a); err != nil {
			return nil, err
		}
		return a, nil
	}
}

// Named decodes to the payload-free action name. Arguments are rejected.
func Named(name string) ActionDecoder {
	return func(args map[string]any) (reduce.Action, error) {
		if len(args) > 0 {
			return nil, fmt.Errorf("%s takes no args", name)
		}
		return reduce.Named(name), nil
	}
}

// DecodeArgs decodes scenario arguments into out.
func DecodeArgs(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(args)
}

// Registry holds the applications scenarios may name.
type Registry struct {
	apps map[string]App
}

// NewRegistry creates a registry holding apps.
func NewRegistry(apps ...App) *Registry {
	r := &Registry{apps: make(map[string]App)}
	for _, a := range apps {
		r.Register(a)
	}
	return r
}

// Register adds a, replacing any app of the same name.
func (r *Registry) Register(a App) {
	r.apps[a.Name()] = a
}

// Lookup returns the app called name.
func (r *Registry) Lookup(name string) (App, bool) {
	a, ok := r.apps[name]
	return a, ok
}

// Names returns the registered app names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.apps))
	for n := range r.apps {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
