package transcode

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/jonas747/ogg"
)

// Config controls how the Supervisor spawns and supervises FFmpeg.
type Config struct {
	// FFmpegPath is the transcoder binary. Defaults to "ffmpeg" on PATH.
	FFmpegPath string

	// MaxConcurrent caps the number of live subprocesses across all
	// sessions. Spawns past the cap fail fast with ErrCapacityExceeded.
	MaxConcurrent int

	// FrameBuffer is the pipe depth in frames. At 20ms per frame the
	// default of 128 buffers about 2.5 seconds of audio.
	FrameBuffer int

	// StallTimeout bounds how long a consumer waits for the next frame
	// before the stream is treated as stalled.
	StallTimeout time.Duration

	// Bitrate is the Opus encoding bitrate in kbit/s.
	Bitrate int

	// ArchiveMaxBytes caps the size of a track eligible for archiving.
	// Zero disables archiving even when a store is configured.
	ArchiveMaxBytes int
}

func (c Config) withDefaults() Config {
	if c.FFmpegPath == "" {
		c.FFmpegPath = "ffmpeg"
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 16
	}
	if c.FrameBuffer <= 0 {
		c.FrameBuffer = 128
	}
	if c.StallTimeout <= 0 {
		c.StallTimeout = 15 * time.Second
	}
	if c.Bitrate <= 0 {
		c.Bitrate = 96
	}
	return c
}

// Source identifies one media input for a single transcode.
type Source struct {
	// URL is the resolved stream URL or file path handed to FFmpeg.
	URL string

	// ArchiveKey, when set, is the stable key used to look the track up in
	// the frame store and to archive it after a clean transcode.
	ArchiveKey string

	// Volume is a percentage; 100 or 0 means unity gain.
	Volume int
}

// FrameStore archives transcoded tracks so that replays skip FFmpeg entirely.
type FrameStore interface {
	// Open returns a reader over length-prefixed frames, or ErrNotArchived.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Save(ctx context.Context, key string, data []byte) error
}

// ErrNotArchived is returned by FrameStore.Open for unknown keys.
var ErrNotArchived = errors.New("track not archived")

// Supervisor spawns one FFmpeg subprocess per active stream and guarantees
// termination and reaping. It is safe for concurrent use.
type Supervisor struct {
	cfg   Config
	slots chan struct{}
	store FrameStore
}

// NewSupervisor returns a Supervisor with the given config. store may be nil
// to disable the audio archive.
func NewSupervisor(cfg Config, store FrameStore) *Supervisor {
	cfg = cfg.withDefaults()
	return &Supervisor{
		cfg:   cfg,
		slots: make(chan struct{}, cfg.MaxConcurrent),
		store: store,
	}
}

// Active reports the number of live subprocesses.
func (s *Supervisor) Active() int {
	return len(s.slots)
}

// Spawn starts decoding src into a Stream of Opus frames. If the track is
// already archived, the returned Stream replays it without a subprocess and
// without consuming a transcode slot.
func (s *Supervisor) Spawn(ctx context.Context, src Source) (*Stream, error) {
	if s.store != nil && src.ArchiveKey != "" {
		rc, err := s.store.Open(ctx, src.ArchiveKey)
		if err == nil {
			return s.spawnArchived(src.ArchiveKey, rc), nil
		}
		if !errors.Is(err, ErrNotArchived) {
			slog.Warn("audio archive lookup failed", "key", src.ArchiveKey, "error", err)
		}
	}

	select {
	case s.slots <- struct{}{}:
	default:
		return nil, fmt.Errorf("%w: %d transcodes active", ErrCapacityExceeded, s.cfg.MaxConcurrent)
	}

	stream, err := s.spawnProcess(ctx, src)
	if err != nil {
		<-s.slots
		return nil, err
	}
	return stream, nil
}

func (s *Supervisor) spawnProcess(ctx context.Context, src Source) (*Stream, error) {
	cmd := exec.CommandContext(ctx, s.cfg.FFmpegPath, s.args(src)...)
	// Own process group so termination reaches FFmpeg's children too.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdout pipe: %v", ErrSpawnFailed, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stderr pipe: %v", ErrSpawnFailed, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}

	stream := newStream(s.cfg.FrameBuffer, s.cfg.StallTimeout)
	stream.kill = func() { killGroup(cmd) }

	tail := newStderrTail()
	go tail.collect(stderr)

	go s.pump(cmd, stdout, stream, src.ArchiveKey, tail)

	return stream, nil
}

// pump reads OGG pages from FFmpeg stdout, pushes Opus packets into the
// stream, reaps the process, and records the terminal error.
func (s *Supervisor) pump(cmd *exec.Cmd, stdout io.Reader, stream *Stream, archiveKey string, tail *stderrTail) {
	var archive *frameArchive
	if s.store != nil && archiveKey != "" && s.cfg.ArchiveMaxBytes > 0 {
		archive = newFrameArchive(s.cfg.ArchiveMaxBytes)
	}

	decoder := ogg.NewPacketDecoder(ogg.NewDecoder(bufio.NewReaderSize(stdout, 16384)))

	// The first two OGG packets are codec metadata, not audio.
	skip := 2
	var readErr error
	for {
		packet, _, err := decoder.Decode()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				readErr = err
			}
			break
		}
		if skip > 0 {
			skip--
			continue
		}
		if !stream.push(Frame(packet)) {
			break
		}
		archive.append(Frame(packet))
	}

	waitErr := cmd.Wait()
	<-s.slots
	streamErr := classifyExit(waitErr, readErr, stream, tail.lines())
	stream.finish(streamErr)

	if streamErr == nil && !stream.terminated() && archive != nil && archive.complete() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.store.Save(ctx, archiveKey, archive.bytes()); err != nil {
			slog.Warn("failed to archive track", "key", archiveKey, "error", err)
		}
	}
}

func (s *Supervisor) spawnArchived(key string, rc io.ReadCloser) *Stream {
	stream := newStream(s.cfg.FrameBuffer, s.cfg.StallTimeout)
	stream.kill = func() { rc.Close() }

	go func() {
		defer rc.Close()
		reader := NewFrameReader(rc)
		var readErr error
		for {
			frame, err := reader.ReadFrame()
			if err != nil {
				if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) && !stream.terminated() {
					readErr = fmt.Errorf("%w: reading archive %s: %v", ErrPipe, key, err)
				}
				break
			}
			if !stream.push(frame) {
				break
			}
		}
		stream.finish(readErr)
	}()

	return stream
}

// args builds the FFmpeg invocation for a source. Output is always OGG/Opus
// at the fixed system format on stdout.
func (s *Supervisor) args(src Source) []string {
	args := []string{
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", "5",
		"-i", src.URL,
		"-vn",
		"-map", "0:a",
		"-acodec", "libopus",
		"-f", "ogg",
		"-ar", strconv.Itoa(SampleRate),
		"-ac", strconv.Itoa(Channels),
		"-b:a", strconv.Itoa(s.cfg.Bitrate * 1000),
		"-application", "audio",
		"-frame_duration", "20",
		"-packet_loss", "1",
	}
	if src.Volume > 0 && src.Volume != 100 {
		args = append(args, "-filter:a", fmt.Sprintf("volume=%.2f", float64(src.Volume)/100))
	}
	return append(args, "pipe:1")
}

// classifyExit maps a subprocess exit to the stream's terminal error.
func classifyExit(waitErr, readErr error, stream *Stream, stderrTail []string) error {
	if stream.terminated() {
		// We killed it; the exit status is ours, not the source's.
		return nil
	}
	if waitErr == nil && readErr == nil {
		return nil
	}
	detail := strings.Join(stderrTail, " | ")
	if !stream.emitted.Load() {
		return fmt.Errorf("%w: %s", ErrSourceUnavailable, detail)
	}
	if readErr != nil {
		return fmt.Errorf("%w: %v", ErrPipe, readErr)
	}
	return fmt.Errorf("%w: transcoder exited mid-stream: %s", ErrPipe, detail)
}

func killGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	pid := cmd.Process.Pid
	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil {
		return
	}
	// Escalate if FFmpeg ignores SIGTERM.
	go func() {
		time.Sleep(3 * time.Second)
		syscall.Kill(-pid, syscall.SIGKILL)
	}()
}

const stderrTailLines = 16

// stderrTail keeps the last few stderr lines for error reporting.
type stderrTail struct {
	mu    sync.Mutex
	tail  []string
	limit int
}

func newStderrTail() *stderrTail {
	return &stderrTail{limit: stderrTailLines}
}

func (t *stderrTail) collect(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		t.mu.Lock()
		if len(t.tail) >= t.limit {
			t.tail = t.tail[1:]
		}
		t.tail = append(t.tail, line)
		t.mu.Unlock()
	}
}

func (t *stderrTail) lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.tail))
	copy(out, t.tail)
	return out
}

// frameArchive accumulates length-prefixed frames up to a size cap.
// A nil archive ignores all appends.
type frameArchive struct {
	buf      bytes.Buffer
	writer   *FrameWriter
	limit    int
	overflow bool
}

func newFrameArchive(limit int) *frameArchive {
	a := &frameArchive{limit: limit}
	a.writer = NewFrameWriter(&a.buf)
	return a
}

func (a *frameArchive) append(frame Frame) {
	if a == nil || a.overflow {
		return
	}
	if a.buf.Len()+len(frame)+2 > a.limit {
		a.overflow = true
		a.buf.Reset()
		return
	}
	_ = a.writer.WriteFrame(frame)
}

func (a *frameArchive) complete() bool {
	return a != nil && !a.overflow && a.buf.Len() > 0
}

func (a *frameArchive) bytes() []byte {
	return a.buf.Bytes()
}
