package transport

import (
	"fmt"
	"sync"
	"time"

	"github.com/dd0wney/cluso-threatgraph/pkg/engine"
	"github.com/dd0wney/cluso-threatgraph/pkg/logging"
	"github.com/dd0wney/cluso-threatgraph/pkg/metrics"
	"github.com/dd0wney/cluso-threatgraph/pkg/pools"
	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/pub"

	// Register all transports
	_ "go.nanomsg.org/mangos/v3/transport/all"
)

// SinkName labels the publisher in frame metrics
const SinkName = "nng"

// DefaultSendDeadline bounds how long a send may stall the engine goroutine
const DefaultSendDeadline = 50 * time.Millisecond

// Option configures a Publisher
type Option func(*Publisher)

// WithCompression snappy-compresses every frame
func WithCompression(on bool) Option {
	return func(p *Publisher) {
		p.compress = on
	}
}

// WithLogger sets the publisher logger
func WithLogger(logger logging.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithMetrics records published frames into reg
func WithMetrics(reg *metrics.Registry) Option {
	return func(p *Publisher) {
		p.metrics = reg
	}
}

// Publisher broadcasts frames on a PUB socket. It implements engine.FrameSink.
type Publisher struct {
	addr     string
	sock     mangos.Socket
	compress bool
	logger   logging.Logger
	metrics  *metrics.Registry

	mu      sync.Mutex
	closed  bool
	sent    uint64
	lastErr error
}

var _ engine.FrameSink = (*Publisher)(nil)

// NewPublisher binds a PUB socket to addr, e.g. tcp://127.0.0.1:40899 or
// inproc://frames
func NewPublisher(addr string, opts ...Option) (*Publisher, error) {
	p := &Publisher{
		addr:   addr,
		logger: logging.DefaultLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(logging.Component("transport"))

	sock, err := pub.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("failed to create PUB socket: %w", err)
	}
	if err := sock.SetOption(mangos.OptionSendDeadline, DefaultSendDeadline); err != nil {
		sock.Close()
		return nil, fmt.Errorf("failed to set send deadline: %w", err)
	}
	if err := sock.Listen(addr); err != nil {
		sock.Close()
		return nil, fmt.Errorf("failed to bind PUB socket: %w", err)
	}
	p.sock = sock

	p.logger.Info("frame publisher bound",
		logging.String("addr", addr),
		logging.Bool("compress", p.compress))
	return p, nil
}

// PublishFrame encodes and broadcasts f. Subscribers that are not connected
// simply miss it. The socket copies the message, so the encode buffer goes
// back to the pool once Send returns.
func (p *Publisher) PublishFrame(f engine.Frame) error {
	buf := pools.GetBytes(pools.MediumSize)
	msg, err := AppendEncode(buf, f, p.compress)
	defer func() { pools.PutBytes(msg) }()
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return mangos.ErrClosed
	}
	if err := p.sock.Send(msg); err != nil {
		p.lastErr = fmt.Errorf("failed to publish frame %d: %w", f.Tick, err)
		return p.lastErr
	}
	p.sent++
	p.lastErr = nil

	if p.metrics != nil {
		p.metrics.RecordFrame(SinkName, EncodingOf(msg), len(msg))
	}
	return nil
}

// Sent returns the number of frames handed to the socket
func (p *Publisher) Sent() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sent
}

// LastError returns the error of the most recent send, nil after a success
func (p *Publisher) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// Addr returns the bound address
func (p *Publisher) Addr() string {
	return p.addr
}

// Close releases the socket. It is idempotent.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if err := p.sock.Close(); err != nil {
		p.logger.Warn("failed to close frame publisher", logging.Error(err))
		return err
	}
	p.logger.Info("frame publisher closed", logging.Uint64("frames", p.sent))
	return nil
}
