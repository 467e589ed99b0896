package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestSupervisorArgs(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		source Source
		want   []string
	}{
		{
			name:   "default config",
			cfg:    Config{},
			source: Source{URL: "https://cdn.example.com/audio"},
			want: []string{
				"-reconnect", "1",
				"-reconnect_streamed", "1",
				"-reconnect_delay_max", "5",
				"-i", "https://cdn.example.com/audio",
				"-vn",
				"-map", "0:a",
				"-acodec", "libopus",
				"-f", "ogg",
				"-ar", "48000",
				"-ac", "2",
				"-b:a", "96000",
				"-application", "audio",
				"-frame_duration", "20",
				"-packet_loss", "1",
				"pipe:1",
			},
		},
		{
			name:   "half volume",
			cfg:    Config{Bitrate: 64},
			source: Source{URL: "file.opus", Volume: 50},
			want: []string{
				"-reconnect", "1",
				"-reconnect_streamed", "1",
				"-reconnect_delay_max", "5",
				"-i", "file.opus",
				"-vn",
				"-map", "0:a",
				"-acodec", "libopus",
				"-f", "ogg",
				"-ar", "48000",
				"-ac", "2",
				"-b:a", "64000",
				"-application", "audio",
				"-frame_duration", "20",
				"-packet_loss", "1",
				"-filter:a", "volume=0.50",
				"pipe:1",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSupervisor(tt.cfg, nil)
			got := s.args(tt.source)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("args() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSpawnFailsFastAtCapacity(t *testing.T) {
	s := NewSupervisor(Config{MaxConcurrent: 1}, nil)

	// Occupy the only slot without spawning a real process.
	s.slots <- struct{}{}

	_, err := s.Spawn(t.Context(), Source{URL: "whatever"})
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Errorf("Spawn() at capacity = %v, want ErrCapacityExceeded", err)
	}
}

func TestClassifyExit(t *testing.T) {
	exitErr := fmt.Errorf("exit status 1")

	terminatedStream := func() *Stream {
		s := newStream(1, time.Second)
		close(s.stopped)
		return s
	}
	emittedStream := func() *Stream {
		s := newStream(1, time.Second)
		s.emitted.Store(true)
		return s
	}
	bufferedStream := func() *Stream {
		s := newStream(1, time.Second)
		s.push(Frame{0x01})
		return s
	}

	tests := []struct {
		name    string
		waitErr error
		readErr error
		stream  *Stream
		want    error
	}{
		{
			name:   "clean exit",
			stream: newStream(1, time.Second),
			want:   nil,
		},
		{
			name:    "terminated by us",
			waitErr: exitErr,
			stream:  terminatedStream(),
			want:    nil,
		},
		{
			name:    "failed before first frame",
			waitErr: exitErr,
			stream:  newStream(1, time.Second),
			want:    ErrSourceUnavailable,
		},
		{
			name:    "decode error mid-stream",
			readErr: fmt.Errorf("bad ogg page"),
			stream:  emittedStream(),
			want:    ErrPipe,
		},
		{
			name:    "process died mid-stream",
			waitErr: exitErr,
			stream:  emittedStream(),
			want:    ErrPipe,
		},
		{
			// Frames were produced but the consumer has not read any yet.
			// The source was reachable, so this is a pipe failure.
			name:    "process died with frames still buffered",
			waitErr: exitErr,
			stream:  bufferedStream(),
			want:    ErrPipe,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyExit(tt.waitErr, tt.readErr, tt.stream, []string{"some stderr"})
			if tt.want == nil {
				if got != nil {
					t.Errorf("classifyExit() = %v, want nil", got)
				}
				return
			}
			if !errors.Is(got, tt.want) {
				t.Errorf("classifyExit() = %v, want %v", got, tt.want)
			}
		})
	}
}

type memoryFrameStore struct {
	blobs map[string][]byte
}

func (m *memoryFrameStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.blobs[key]
	if !ok {
		return nil, ErrNotArchived
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryFrameStore) Save(_ context.Context, key string, data []byte) error {
	if m.blobs == nil {
		m.blobs = make(map[string][]byte)
	}
	m.blobs[key] = data
	return nil
}

func TestSpawnServesArchivedTrack(t *testing.T) {
	var buf bytes.Buffer
	writer := NewFrameWriter(&buf)
	frames := []Frame{{0xaa}, {0xbb, 0xcc}, {0xdd}}
	for _, frame := range frames {
		if err := writer.WriteFrame(frame); err != nil {
			t.Fatalf("WriteFrame() error: %v", err)
		}
	}

	store := &memoryFrameStore{blobs: map[string][]byte{"track-1": buf.Bytes()}}
	s := NewSupervisor(Config{MaxConcurrent: 1}, store)

	stream, err := s.Spawn(t.Context(), Source{URL: "ignored", ArchiveKey: "track-1"})
	if err != nil {
		t.Fatalf("Spawn() error: %v", err)
	}

	if got := s.Active(); got != 0 {
		t.Errorf("Active() = %d after archive hit, want 0 (no subprocess)", got)
	}

	ctx := t.Context()
	for i, want := range frames {
		got, err := stream.ReadNext(ctx)
		if err != nil {
			t.Fatalf("ReadNext() frame %d: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("frame %d mismatch", i)
		}
	}
	if _, err := stream.ReadNext(ctx); !errors.Is(err, io.EOF) {
		t.Errorf("ReadNext() past end = %v, want io.EOF", err)
	}
}

func TestFrameArchiveRespectsCap(t *testing.T) {
	archive := newFrameArchive(16)

	archive.append(make(Frame, 4))
	if !archive.complete() {
		t.Fatal("archive should be complete while under the cap")
	}

	archive.append(make(Frame, 64))
	if archive.complete() {
		t.Error("archive should be discarded once the cap is exceeded")
	}
}
