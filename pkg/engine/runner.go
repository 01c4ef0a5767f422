package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dd0wney/cluso-threatgraph/pkg/logging"
	"github.com/dd0wney/cluso-threatgraph/pkg/metrics"
	"github.com/dd0wney/cluso-threatgraph/pkg/pubsub"
	"github.com/dd0wney/cluso-threatgraph/pkg/scheduler"
)

// ErrRunnerStopped is returned by operations on a stopped runner
var ErrRunnerStopped = errors.New("engine runner stopped")

// FrameTopic is the broker topic frames are published on
const FrameTopic = "frames"

const defaultQueueSize = 256

// FrameSink receives every frame the runner produces, on the runner goroutine
type FrameSink interface {
	PublishFrame(f Frame) error
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithSink adds a named frame sink such as a network publisher
func WithSink(name string, sink FrameSink) RunnerOption {
	return func(r *Runner) {
		r.sinks = append(r.sinks, namedSink{name: name, sink: sink})
	}
}

// WithTrigger ticks on an external frame signal instead of the FPS interval
func WithTrigger(trigger <-chan struct{}) RunnerOption {
	return func(r *Runner) {
		r.trigger = trigger
	}
}

// WithBrokerOptions configures the in-process frame broker
func WithBrokerOptions(opts ...pubsub.Option) RunnerOption {
	return func(r *Runner) {
		r.brokerOpts = append(r.brokerOpts, opts...)
	}
}

type namedSink struct {
	name string
	sink FrameSink
}

// Runner owns an Engine and drives it from a single goroutine. Every tick it
// first applies queued operations in order, then steps the solver and
// publishes the frame. Nothing else touches the engine, so no locking is
// needed inside it.
type Runner struct {
	engine *Engine
	logger logging.Logger

	task       *scheduler.Task
	trigger    <-chan struct{}
	broker     *pubsub.Broker[Frame]
	brokerOpts []pubsub.Option
	sinks      []namedSink
	ops        chan func(*Engine)

	stopCh   chan struct{}
	stopOnce sync.Once

	mu       sync.RWMutex
	latest   Frame
	lastTick time.Time
	loaded   bool
	dropped  uint64
}

// NewRunner takes ownership of e. Frames are conflated for slow subscribers
// unless broker options say otherwise.
func NewRunner(e *Engine, opts ...RunnerOption) *Runner {
	r := &Runner{
		engine:     e,
		logger:     e.logger.With(logging.Component("runner")),
		brokerOpts: []pubsub.Option{pubsub.WithBuffer(4), pubsub.WithConflation()},
		ops:        make(chan func(*Engine), defaultQueueSize),
		stopCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.broker = pubsub.NewBroker[Frame](r.brokerOpts...)
	r.latest = e.Frame()

	if r.trigger != nil {
		r.task = scheduler.NewTriggeredTask("engine", r.trigger, r.frame)
	} else {
		r.task = scheduler.NewTask("engine", e.config.FrameInterval(), r.frame)
	}
	return r
}

// Start begins ticking. The runner stops when ctx is done or Stop is called.
func (r *Runner) Start(ctx context.Context) error {
	select {
	case <-r.stopCh:
		return ErrRunnerStopped
	default:
	}
	if err := r.task.Start(ctx); err != nil {
		return ErrRunnerStopped
	}
	r.logger.Info("runner started", logging.Duration("interval", r.engine.config.FrameInterval()))
	return nil
}

// Stop halts ticking, closes every subscription and releases the engine. It
// is idempotent and safe before Start. Queued operations are discarded.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
		r.task.Cancel()
		r.broker.Shutdown()
		r.engine.Close()
		r.logger.Info("runner stopped", logging.Uint64("ticks", r.engine.Ticks()))
	})
}

// Done is closed once the tick loop has exited
func (r *Runner) Done() <-chan struct{} {
	return r.task.Done()
}

func (r *Runner) frame(ctx context.Context) {
	r.drain()

	f := r.engine.Tick()

	r.mu.Lock()
	r.latest = f
	r.lastTick = time.Now()
	r.loaded = r.engine.Loaded()
	r.mu.Unlock()

	r.broker.Publish(FrameTopic, f)
	reg := r.engine.metrics
	if reg != nil {
		reg.RecordFrame("broker", "", 0)
		dropped := r.broker.Dropped()
		reg.RecordFramesDropped(dropped - r.dropped)
		r.dropped = dropped
	}

	for _, s := range r.sinks {
		if err := s.sink.PublishFrame(f); err != nil {
			r.logger.Warn("frame sink failed", logging.String("sink", s.name), logging.Error(err))
		}
	}
}

func (r *Runner) drain() {
	for {
		select {
		case op := <-r.ops:
			op(r.engine)
		default:
			return
		}
	}
}

// Submit queues fn to run on the engine goroutine before the next tick and
// returns without waiting. It blocks only while the queue is full.
func (r *Runner) Submit(ctx context.Context, fn func(*Engine)) error {
	select {
	case <-r.stopCh:
		return ErrRunnerStopped
	default:
	}
	select {
	case r.ops <- fn:
		return nil
	case <-r.stopCh:
		return ErrRunnerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do runs fn on the engine goroutine and waits for it to finish
func (r *Runner) Do(ctx context.Context, fn func(*Engine)) error {
	done := make(chan struct{})
	if err := r.Submit(ctx, func(e *Engine) {
		defer close(done)
		fn(e)
	}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-r.stopCh:
		return ErrRunnerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe returns a subscription receiving every published frame. A slow
// subscriber only misses intermediate frames, never the latest one.
func (r *Runner) Subscribe(ctx context.Context) (*pubsub.Subscription[Frame], error) {
	sub, err := r.broker.Subscribe(ctx, FrameTopic)
	if err != nil {
		return nil, ErrRunnerStopped
	}
	r.recordSubscribers()
	go func() {
		select {
		case <-ctx.Done():
			r.recordSubscribers()
		case <-r.stopCh:
		}
	}()
	return sub, nil
}

func (r *Runner) recordSubscribers() {
	if reg := r.engine.metrics; reg != nil {
		reg.SetFrameSubscribers("broker", r.broker.SubscriberCount(FrameTopic))
	}
}

// Latest returns the most recently published frame
func (r *Runner) Latest() Frame {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest
}

// LastTick returns when the solver last completed a tick
func (r *Runner) LastTick() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastTick
}

// Loaded reports whether a graph had been set as of the latest tick
func (r *Runner) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// Interval returns the configured time between ticks
func (r *Runner) Interval() time.Duration {
	return r.engine.config.FrameInterval()
}

// Session returns the engine session id
func (r *Runner) Session() string {
	return r.engine.session
}

// Metrics returns the registry the engine records into
func (r *Runner) Metrics() *metrics.Registry {
	return r.engine.metrics
}

// Executor runs operations against an engine on the goroutine that owns it
type Executor interface {
	Do(ctx context.Context, fn func(*Engine)) error
}

var _ Executor = (*Runner)(nil)

// Inline executes operations on the calling goroutine. It suits hosts that
// already drive the engine from a single goroutine.
type Inline struct {
	Engine *Engine
}

// Do implements Executor
func (i Inline) Do(ctx context.Context, fn func(*Engine)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fn(i.Engine)
	return nil
}
