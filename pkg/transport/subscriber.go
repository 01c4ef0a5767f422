package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dd0wney/cluso-threatgraph/pkg/engine"
	"github.com/dd0wney/cluso-threatgraph/pkg/logging"
	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/sub"
)

// recvPoll bounds each Recv so the loop notices cancellation
const recvPoll = 250 * time.Millisecond

// Subscriber receives frames from a Publisher
type Subscriber struct {
	addr   string
	sock   mangos.Socket
	logger logging.Logger

	frames chan engine.Frame
	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// Dial connects a SUB socket to addr. The connection is retried in the
// background, so the publisher may come up later.
func Dial(addr string, logger logging.Logger) (*Subscriber, error) {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	sock, err := sub.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("failed to create SUB socket: %w", err)
	}
	if err := sock.SetOption(mangos.OptionSubscribe, []byte(Topic)); err != nil {
		sock.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}
	if err := sock.SetOption(mangos.OptionRecvDeadline, recvPoll); err != nil {
		sock.Close()
		return nil, fmt.Errorf("failed to set receive deadline: %w", err)
	}
	if err := sock.DialOptions(addr, map[string]interface{}{mangos.OptionDialAsynch: true}); err != nil {
		sock.Close()
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	return &Subscriber{
		addr:   addr,
		sock:   sock,
		logger: logger.With(logging.Component("transport"), logging.String("addr", addr)),
		frames: make(chan engine.Frame, 1),
		stopCh: make(chan struct{}),
	}, nil
}

// Start receives until ctx is done or Close is called. Frames that arrive
// while the consumer is busy replace the pending one.
func (s *Subscriber) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.receive(ctx)
}

func (s *Subscriber) receive(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.frames)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		default:
		}

		msg, err := s.sock.Recv()
		if err != nil {
			if errors.Is(err, mangos.ErrClosed) {
				return
			}
			// timeout
			continue
		}

		f, err := Decode(msg)
		if err != nil {
			s.logger.Warn("dropping undecodable frame", logging.Error(err))
			continue
		}
		s.offer(f)
	}
}

func (s *Subscriber) offer(f engine.Frame) {
	for {
		select {
		case s.frames <- f:
			return
		default:
		}
		select {
		case <-s.frames:
		default:
		}
	}
}

// Frames delivers received frames. It is closed when the subscriber stops.
func (s *Subscriber) Frames() <-chan engine.Frame {
	return s.frames
}

// Close stops receiving and releases the socket
func (s *Subscriber) Close() error {
	var err error
	s.once.Do(func() {
		close(s.stopCh)
		err = s.sock.Close()
		s.wg.Wait()
	})
	return err
}
