package transcode

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// Stream is a handle to one live transcode: a bounded pipe of frames plus
// the means to tear the producer down. A Stream is owned by exactly one
// play cycle and is never reused.
type Stream struct {
	frames chan Frame
	stall  time.Duration

	// stopped is closed by Terminate to unblock the producer.
	stopped  chan struct{}
	stopOnce sync.Once

	// exited is closed once the producer is done and, for subprocess-backed
	// streams, the process has been reaped.
	exited chan struct{}

	// emitted records that the producer delivered at least one frame,
	// whether or not the consumer has read it yet.
	emitted atomic.Bool

	mu        sync.Mutex
	streamErr error

	// kill signals the underlying producer to stop. Nil for archive streams.
	kill func()
}

func newStream(buffer int, stall time.Duration) *Stream {
	return &Stream{
		frames:  make(chan Frame, buffer),
		stall:   stall,
		stopped: make(chan struct{}),
		exited:  make(chan struct{}),
	}
}

// ReadNext returns the next frame in emission order. It returns io.EOF on a
// clean end of stream, ErrStallTimeout if no frame arrives in time, and the
// underlying stream error if the producer failed.
func (s *Stream) ReadNext(ctx context.Context) (Frame, error) {
	timer := time.NewTimer(s.stall)
	defer timer.Stop()

	select {
	case frame, ok := <-s.frames:
		if !ok {
			if err := s.err(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
		return frame, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrStallTimeout
	}
}

// Terminate stops the producer and blocks until it has fully exited; for
// subprocess streams this guarantees the process is reaped before returning.
// It is idempotent and safe to call concurrently with natural exit.
func (s *Stream) Terminate() {
	s.stopOnce.Do(func() {
		close(s.stopped)
		if s.kill != nil {
			s.kill()
		}
	})
	<-s.exited
}

// push delivers a frame to the consumer, blocking for backpressure.
// It reports false once the stream has been terminated.
func (s *Stream) push(frame Frame) bool {
	select {
	case s.frames <- frame:
		s.emitted.Store(true)
		return true
	case <-s.stopped:
		return false
	}
}

// finish records the terminal error (nil for clean EOF), closes the frame
// channel, and marks the stream exited.
func (s *Stream) finish(err error) {
	s.mu.Lock()
	s.streamErr = err
	s.mu.Unlock()
	close(s.frames)
	close(s.exited)
}

func (s *Stream) err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamErr
}

func (s *Stream) terminated() bool {
	select {
	case <-s.stopped:
		return true
	default:
		return false
	}
}
