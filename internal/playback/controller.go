package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gaanbot/gaanbot/internal/resolver"
	"github.com/gaanbot/gaanbot/internal/transcode"
)

// State is the controller's position in a play cycle.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
)

// Handle is one live frame stream. Exclusively owned by a single play cycle.
type Handle interface {
	// ReadNext returns the next frame, io.EOF at end of stream, or a
	// terminal stream error.
	ReadNext(ctx context.Context) (transcode.Frame, error)

	// Terminate stops the stream and blocks until its subprocess, if any,
	// has been reaped. Idempotent.
	Terminate()
}

// Spawner starts a transcode for a resolved source.
type Spawner interface {
	Spawn(ctx context.Context, src transcode.Source) (Handle, error)
}

// SpawnerFunc adapts a function to the Spawner interface.
type SpawnerFunc func(ctx context.Context, src transcode.Source) (Handle, error)

func (f SpawnerFunc) Spawn(ctx context.Context, src transcode.Source) (Handle, error) {
	return f(ctx, src)
}

// Sink consumes frames in emission order. Write may block; the controller
// relies on that blocking for backpressure and never drops frames.
type Sink interface {
	Write(ctx context.Context, frame transcode.Frame) error
}

// StreamResolver fills in a track's stream URL right before playback. Tracks
// derived from Spotify items are enqueued unresolved and go through this.
type StreamResolver interface {
	ResolveStream(ctx context.Context, track resolver.Track) (resolver.Track, error)
}

// Notifier receives session lifecycle events. Implementations must not call
// back into the controller from the notification and should return quickly.
type Notifier interface {
	TrackStarted(sessionID string, req PlayRequest)
	TrackFailed(sessionID string, req PlayRequest, err error)
	QueueDrained(sessionID string)
}

// Status is a point-in-time snapshot of the active play cycle.
type Status struct {
	State   State
	Request PlayRequest

	// Elapsed is derived from delivered frames, so paused time is excluded.
	Elapsed time.Duration
}

// ControllerConfig wires one session's collaborators.
type ControllerConfig struct {
	SessionID string
	Spawner   Spawner
	Sink      Sink
	Notifier  Notifier

	// Resolver may be nil when every enqueued track is already resolved.
	Resolver StreamResolver

	// QueueLimit caps the queue; non-positive means unbounded.
	QueueLimit int

	// DefaultVolume is the percentage used when a request carries none.
	DefaultVolume int

	// RetryBackoff is the pause after a capacity or spawn failure before
	// the next queued track is attempted.
	RetryBackoff time.Duration
}

// Controller runs one session's playback state machine. All mutations are
// delivered as messages to the session goroutine; the exported methods are
// safe for concurrent use.
type Controller struct {
	cfg   ControllerConfig
	queue *Queue

	cmds    chan command
	events  chan event
	closing chan struct{}
	done    chan struct{}

	closeOnce sync.Once
}

type commandKind int

const (
	cmdEnqueue commandKind = iota
	cmdSkip
	cmdPause
	cmdResume
	cmdStop
	cmdNowPlaying
)

type command struct {
	kind commandKind
	req  PlayRequest
	n    int
	resp chan response
}

type response struct {
	pos int
	now *Status
	err error
}

type eventKind int

const (
	evStarted eventKind = iota
	evEnded
)

// event is sent by a play-cycle goroutine back to the run loop.
type event struct {
	gen  uint64
	kind eventKind
	err  error
}

// cycle is the run loop's record of one in-flight play.
type cycle struct {
	gen    uint64
	req    PlayRequest
	cancel context.CancelFunc

	// pause carries the latest desired pause state to the pump. Buffered
	// with one slot; the run loop drains before sending so it never blocks.
	pause chan bool

	// frames counts frames handed to the sink, for progress reporting.
	frames atomic.Uint64

	// interrupted is set by the run loop on skip/stop so the resulting
	// cancellation is not reported as a playback failure.
	interrupted bool
}

// NewController starts a session goroutine and returns its controller.
func NewController(cfg ControllerConfig) *Controller {
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 3 * time.Second
	}
	c := &Controller{
		cfg:     cfg,
		queue:   NewQueue(cfg.QueueLimit),
		cmds:    make(chan command),
		events:  make(chan event, 2),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go c.run()
	return c
}

// Enqueue appends a request and returns its 1-based queue position. If the
// session is idle, playback starts immediately.
func (c *Controller) Enqueue(ctx context.Context, req PlayRequest) (int, error) {
	resp, err := c.send(ctx, command{kind: cmdEnqueue, req: req})
	if err != nil {
		return 0, err
	}
	return resp.pos, nil
}

// Skip ends the current track and drops n-1 queued tracks after it. The
// current subprocess is terminated and reaped before the next one spawns.
func (c *Controller) Skip(ctx context.Context, n int) error {
	if n < 1 {
		n = 1
	}
	_, err := c.send(ctx, command{kind: cmdSkip, n: n})
	return err
}

// Pause suspends frame delivery without ending the transcode.
func (c *Controller) Pause(ctx context.Context) error {
	_, err := c.send(ctx, command{kind: cmdPause})
	return err
}

// Resume continues a paused track.
func (c *Controller) Resume(ctx context.Context) error {
	_, err := c.send(ctx, command{kind: cmdResume})
	return err
}

// Stop clears the queue and ends the current track. Calling Stop on an idle
// session is a no-op.
func (c *Controller) Stop(ctx context.Context) error {
	_, err := c.send(ctx, command{kind: cmdStop})
	return err
}

// NowPlaying returns the active play cycle, or nil when idle.
func (c *Controller) NowPlaying(ctx context.Context) (*Status, error) {
	resp, err := c.send(ctx, command{kind: cmdNowPlaying})
	if err != nil {
		return nil, err
	}
	return resp.now, nil
}

// Queue exposes the session's queue for display and direct edits. Edits made
// here do not interrupt the current track.
func (c *Controller) Queue() *Queue {
	return c.queue
}

// Close terminates the current track, stops the session goroutine, and
// blocks until the subprocess, if any, is reaped. Idempotent.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		close(c.closing)
	})
	<-c.done
}

func (c *Controller) send(ctx context.Context, cmd command) (response, error) {
	cmd.resp = make(chan response, 1)
	select {
	case c.cmds <- cmd:
	case <-c.done:
		return response{}, ErrSessionClosed
	case <-ctx.Done():
		return response{}, ctx.Err()
	}
	select {
	case resp := <-cmd.resp:
		return resp, resp.err
	case <-c.done:
		return response{}, ErrSessionClosed
	case <-ctx.Done():
		return response{}, ctx.Err()
	}
}

// run owns all controller state. It exits only on Close.
func (c *Controller) run() {
	defer close(c.done)

	var (
		state   = StateIdle
		current *cycle
		gen     uint64
		retry   *time.Timer
		retryC  <-chan time.Time
	)

	startNext := func() {
		retryC = nil
		req, err := c.queue.DequeueNext()
		if errors.Is(err, ErrQueueEmpty) {
			state = StateIdle
			current = nil
			c.cfg.Notifier.QueueDrained(c.cfg.SessionID)
			return
		}
		gen++
		ctx, cancel := context.WithCancel(context.Background())
		current = &cycle{
			gen:    gen,
			req:    req,
			cancel: cancel,
			pause:  make(chan bool, 1),
		}
		state = StateLoading
		go c.playCycle(ctx, current)
	}

	interrupt := func() {
		if current == nil {
			return
		}
		current.interrupted = true
		current.cancel()
	}

	setPause := func(paused bool) {
		select {
		case <-current.pause:
		default:
		}
		current.pause <- paused
	}

	finish := func(ev event) {
		cy := current
		current = nil
		state = StateIdle
		if ev.err != nil && !cy.interrupted {
			c.cfg.Notifier.TrackFailed(c.cfg.SessionID, cy.req, ev.err)
			slog.Error(
				"playback failed",
				"session", c.cfg.SessionID,
				"track", cy.req.Track.Title,
				"error", ev.err,
			)
			if errors.Is(ev.err, transcode.ErrCapacityExceeded) || errors.Is(ev.err, transcode.ErrSpawnFailed) {
				retry = time.NewTimer(c.cfg.RetryBackoff)
				retryC = retry.C
				return
			}
		}
		startNext()
	}

	handle := func(cmd command) {
		switch cmd.kind {
		case cmdEnqueue:
			pos, err := c.queue.Enqueue(cmd.req)
			if err != nil {
				cmd.resp <- response{err: err}
				return
			}
			if current == nil && retryC == nil {
				startNext()
			}
			cmd.resp <- response{pos: pos}

		case cmdSkip:
			for range cmd.n - 1 {
				if _, err := c.queue.DequeueNext(); err != nil {
					break
				}
			}
			if current == nil {
				if retryC == nil && c.queue.Len() == 0 {
					cmd.resp <- response{err: ErrNothingPlaying}
					return
				}
				cmd.resp <- response{}
				return
			}
			interrupt()
			cmd.resp <- response{}

		case cmdPause:
			if current == nil || state == StateLoading {
				cmd.resp <- response{err: ErrNothingPlaying}
				return
			}
			if state == StatePlaying {
				state = StatePaused
				setPause(true)
			}
			cmd.resp <- response{}

		case cmdResume:
			if current == nil || state == StateLoading {
				cmd.resp <- response{err: ErrNothingPlaying}
				return
			}
			if state == StatePaused {
				state = StatePlaying
				setPause(false)
			}
			cmd.resp <- response{}

		case cmdStop:
			c.queue.Clear()
			if retry != nil {
				retry.Stop()
			}
			retryC = nil
			interrupt()
			cmd.resp <- response{}

		case cmdNowPlaying:
			if current == nil {
				cmd.resp <- response{}
				return
			}
			elapsed := time.Duration(current.frames.Load()) * transcode.FrameDuration
			cmd.resp <- response{now: &Status{
				State:   state,
				Request: current.req,
				Elapsed: elapsed,
			}}
		}
	}

	for {
		select {
		case cmd := <-c.cmds:
			handle(cmd)

		case ev := <-c.events:
			if current == nil || ev.gen != current.gen {
				continue
			}
			switch ev.kind {
			case evStarted:
				if !current.interrupted {
					state = StatePlaying
					c.cfg.Notifier.TrackStarted(c.cfg.SessionID, current.req)
				}
			case evEnded:
				finish(ev)
			}

		case <-retryC:
			startNext()

		case <-c.closing:
			if retry != nil {
				retry.Stop()
			}
			interrupt()
			for current != nil {
				ev := <-c.events
				if ev.gen == current.gen && ev.kind == evEnded {
					current = nil
				}
			}
			return
		}
	}
}

// playCycle resolves, spawns, and pumps one track, then reports the outcome.
// Terminate is guaranteed to have returned before the end event is sent, so
// the run loop never spawns the next subprocess before the previous one is
// reaped.
func (c *Controller) playCycle(ctx context.Context, cy *cycle) {
	err := c.stream(ctx, cy)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	c.events <- event{gen: cy.gen, kind: evEnded, err: err}
}

func (c *Controller) stream(ctx context.Context, cy *cycle) error {
	track := cy.req.Track
	if !track.Resolved() {
		if c.cfg.Resolver == nil {
			return fmt.Errorf("%w: track has no stream URL", transcode.ErrSourceUnavailable)
		}
		resolved, err := c.cfg.Resolver.ResolveStream(ctx, track)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			return fmt.Errorf("%w: %v", transcode.ErrSourceUnavailable, err)
		}
		track = resolved
	}

	volume := cy.req.Volume
	if volume == 0 {
		volume = c.cfg.DefaultVolume
	}
	handle, err := c.cfg.Spawner.Spawn(ctx, transcode.Source{
		URL:        track.StreamURL,
		ArchiveKey: track.CacheKey(),
		Volume:     volume,
	})
	if err != nil {
		return err
	}
	defer handle.Terminate()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	c.events <- event{gen: cy.gen, kind: evStarted}

	paused := false
	for {
		if paused {
			select {
			case paused = <-cy.pause:
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		select {
		case paused = <-cy.pause:
			continue
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		frame, err := handle.ReadNext(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := c.sinkWrite(ctx, frame); err != nil {
			return err
		}
		cy.frames.Add(1)
	}
}

func (c *Controller) sinkWrite(ctx context.Context, frame transcode.Frame) error {
	if err := c.cfg.Sink.Write(ctx, frame); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: sink write: %v", transcode.ErrPipe, err)
	}
	return nil
}
