package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path"
	"reflect"
	"runtime"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/encodeous/beacon/perf"
	"github.com/encodeous/beacon/state"
	"github.com/encodeous/tint"
	"github.com/goccy/go-yaml"
	slogmulti "github.com/samber/slog-multi"
)

// ServeDebug exposes /debug/metrics and /debug/vars
func ServeDebug(addr string, log *slog.Logger) {
	go func() {
		log.Info("serving debug endpoints", "addr", addr)
		err := http.ListenAndServe(addr, nil)
		if err != nil {
			log.Error("debug server stopped", "error", err)
		}
	}()
}

func ReadNodeConfig(nodePath string) (*state.NodeCfg, error) {
	var nodeCfg state.NodeCfg
	file, err := os.ReadFile(nodePath)
	if err != nil {
		return nil, err
	}
	err = yaml.Unmarshal(file, &nodeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", nodePath, err)
	}
	state.ExpandNodeConfig(&nodeCfg)
	err = state.NodeConfigValidator(&nodeCfg)
	if err != nil {
		return nil, err
	}
	return &nodeCfg, nil
}

func ReadSimConfig(simPath string) (*state.SimCfg, []state.NodeCfg, error) {
	var simCfg state.SimCfg
	file, err := os.ReadFile(simPath)
	if err != nil {
		return nil, nil, err
	}
	err = yaml.Unmarshal(file, &simCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", simPath, err)
	}
	nodes := state.ExpandSimConfig(&simCfg)
	err = state.SimConfigValidator(&simCfg)
	if err != nil {
		return nil, nil, err
	}
	for i := range nodes {
		err = state.NodeConfigValidator(&nodes[i])
		if err != nil {
			return nil, nil, err
		}
	}
	return &simCfg, nodes, nil
}

// NewLogger builds the logger of a node, prefixed with its address.
// Output goes to stderr and, if logPath is set, to that file as well.
func NewLogger(prefix string, level slog.Level, logPath string) (*slog.Logger, error) {
	handlers := make([]slog.Handler, 0)
	handlers = append(handlers,
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:        level,
			AddSource:    false,
			CustomPrefix: prefix,
			ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
				if attr.Key == "time" {
					return slog.Attr{}
				}
				return attr
			},
		}))

	if logPath != "" {
		err := os.MkdirAll(path.Dir(logPath), 0700)
		if err != nil {
			return nil, err
		}
		f, err := os.OpenFile(logPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0600)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}).
			WithAttrs([]slog.Attr{slog.String("node", prefix)}))
	}

	return slog.New(slogmulti.Fanout(handlers...)), nil
}

type Options struct {
	Transport state.Transport
	Log       *slog.Logger
	// Clock defaults to the wall clock
	Clock clock.Clock
	// Sink defaults to logging evictions only
	Sink TableSink
	// Ready is called on the main loop once every module is initialised
	Ready func(s *state.State)
}

// Start runs a node until ctx is cancelled or a dispatched function fails.
// The transport is closed when Start returns.
func Start(ctx context.Context, ncfg state.NodeCfg, opt Options) error {
	if opt.Transport == nil {
		return errors.New("a transport is required")
	}
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	if opt.Log == nil {
		opt.Log = slog.Default()
	}
	if opt.Clock == nil {
		opt.Clock = clock.New()
	}

	dispatch := make(chan func(env *state.State) error, state.DispatchBuffer)

	s := &state.State{
		Modules:    make(map[string]state.NyModule),
		Neighbours: state.NewNeighbourTable(ncfg.MaxNeighbours, ncfg.Liveness),
		Env: &state.Env{
			Context:         ctx,
			Cancel:          cancel,
			DispatchChannel: dispatch,
			NodeCfg:         ncfg,
			Log:             opt.Log,
			Clock:           opt.Clock,
			Transport:       opt.Transport,
		},
	}

	s.Log.Debug("init modules")
	err := initModules(s, opt)
	if err != nil {
		Stop(s)
		return err
	}
	s.Log.Info("node started", "addr", s.Id.String())
	if opt.Ready != nil {
		opt.Ready(s)
	}

	return MainLoop(s, dispatch)
}

// Get returns the module of type T
func Get[T state.NyModule](s *state.State) T {
	t := reflect.TypeFor[T]()
	return s.Modules[t.String()].(T)
}

func initModules(s *state.State, opt Options) error {
	sink := opt.Sink
	if sink == nil {
		sink = &LogSink{Log: s.Log}
	}
	trace := &Trace{}

	var modules []state.NyModule
	modules = append(modules, trace)
	modules = append(modules, &Beacon{Sink: multiSink{sink, trace}})

	for _, module := range modules {
		s.Modules[reflect.TypeOf(module).String()] = module
		if err := module.Init(s); err != nil {
			return err
		}
	}
	return nil
}

func nextDeadline(s *state.State) (time.Time, bool) {
	var next time.Time
	for _, module := range s.Modules {
		if tm, ok := module.(state.Timed); ok {
			d := tm.Deadline()
			if !d.IsZero() && (next.IsZero() || d.Before(next)) {
				next = d
			}
		}
	}
	return next, !next.IsZero()
}

func wakeModules(s *state.State) error {
	for _, module := range s.Modules {
		if tm, ok := module.(state.Timed); ok {
			if err := tm.Wake(s); err != nil {
				return err
			}
		}
	}
	return nil
}

// MainLoop processes one event at a time: a dispatched function or an expired module timer.
func MainLoop(s *state.State, dispatch <-chan func(*state.State) error) error {
	s.Log.Debug("started main loop")
	s.Started.Store(true)
	var loopErr error
	for {
		if s.Context.Err() != nil {
			goto endLoop
		}
		var wake <-chan time.Time
		var timer *clock.Timer
		if deadline, ok := nextDeadline(s); ok {
			delay := deadline.Sub(s.Clock.Now())
			if delay <= 0 {
				if err := wakeModules(s); err != nil {
					loopErr = err
					s.Cancel(err)
				}
				continue
			}
			timer = s.Clock.Timer(delay)
			wake = timer.C
		}
		select {
		case fun := <-dispatch:
			start := time.Now()
			err := fun(s)
			if err != nil {
				s.Log.Error("error occurred during dispatch: ", "error", err)
				loopErr = err
				s.Cancel(err)
			}
			elapsed := time.Since(start)
			perf.DispatchLatency.Add(float64(elapsed.Microseconds()))
			if elapsed > time.Millisecond*4 {
				s.Log.Warn("dispatch took a long time!", "fun", runtime.FuncForPC(reflect.ValueOf(fun).Pointer()).Name(), "elapsed", elapsed, "len", len(dispatch))
			}
		case <-wake:
			if err := wakeModules(s); err != nil {
				loopErr = err
				s.Cancel(err)
			}
		case <-s.Context.Done():
			if timer != nil {
				timer.Stop()
			}
			goto endLoop
		}
		if timer != nil {
			timer.Stop()
		}
	}
endLoop:
	s.Log.Info("stopped main loop", "reason", context.Cause(s.Context).Error())
	Stop(s)
	return loopErr
}

func Stop(s *state.State) {
	if s.Stopping.Swap(true) {
		return // don't stop twice
	}
	s.Cancel(context.Canceled)
	s.Log.Debug("cleaning up modules")
	for moduleName, module := range s.Modules {
		err := module.Cleanup(s)
		if err != nil {
			s.Log.Error("error occurred during Stop: ", "module", moduleName, "error", err)
		}
	}
	if err := s.Transport.Close(); err != nil {
		s.Log.Error("failed to close transport", "error", err)
	}
	s.Log.Info("stopped")
}
