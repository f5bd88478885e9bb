package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"golang.org/x/time/rate"
)

// OutcomeHandler shows an outcome to the operator. It runs on the scanner goroutine.
type OutcomeHandler func(ctx context.Context, outcome Outcome)

type Config struct {
	// FramesPerSecond limits how often frames are pulled, zero means no limit.
	FramesPerSecond float64
	// AutoResume goes back to scanning as soon as the outcome was handled.
	AutoResume bool
}

// Scanner samples frames only while in StateScanning. The first decoded code
// stops sampling until the operator calls Resume.
type Scanner struct {
	source   FrameSource
	decoder  FrameDecoder
	pipeline Pipeline
	handler  OutcomeHandler

	limiter    *rate.Limiter
	autoResume bool

	lock   sync.Mutex
	state  State
	resume chan struct{}
}

func NewScanner(
	source FrameSource,
	decoder FrameDecoder,
	pipeline Pipeline,
	handler OutcomeHandler,
	config Config,
) *Scanner {
	if source == nil {
		panic("missing frame source")
	}
	if decoder == nil {
		panic("missing frame decoder")
	}
	if handler == nil {
		panic("missing outcome handler")
	}

	limit := rate.Inf
	if config.FramesPerSecond > 0 {
		limit = rate.Limit(config.FramesPerSecond)
	}

	return &Scanner{
		source:     source,
		decoder:    decoder,
		pipeline:   pipeline,
		handler:    handler,
		limiter:    rate.NewLimiter(limit, 1),
		autoResume: config.AutoResume,
		state:      StateScanning,
		resume:     make(chan struct{}, 1),
	}
}

func (s *Scanner) State() State {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.state
}

func (s *Scanner) setState(state State) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.state = state
}

// Resume goes back to scanning after an outcome. It reports false when there is no
// outcome waiting for the operator.
func (s *Scanner) Resume() bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.state != StateValid && s.state != StateInvalid {
		return false
	}

	s.state = StateScanning
	select {
	case s.resume <- struct{}{}:
	default:
	}
	return true
}

// Run samples frames until the source ends or ctx is cancelled. The source is closed on return.
func (s *Scanner) Run(ctx context.Context) (err error) {
	defer func() {
		if closeErr := s.source.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("could not close frame source: %w", closeErr))
		}
	}()

	logger := log.FromContext(ctx)

	for {
		if err := s.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("frame limiter failed: %w", err)
		}

		frame, err := s.source.NextFrame(ctx)
		if errors.Is(err, io.EOF) || ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return fmt.Errorf("could not read frame: %w", err)
		}

		raw, ok := s.decoder.DecodeFrame(frame)
		if !ok {
			continue
		}

		s.setState(StateDecoded)
		outcome := s.pipeline.Process(ctx, raw)
		s.setState(outcome.State)

		logger.WithField("state", outcome.State).WithField("reason", outcome.Reason).Info("Scan processed")
		s.handler(ctx, outcome)

		if s.autoResume {
			s.setState(StateScanning)
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case <-s.resume:
		}
	}
}
