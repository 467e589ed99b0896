// Package audiocache archives transcoded tracks as length-prefixed Opus
// frame blobs so replays skip FFmpeg entirely.
package audiocache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/gaanbot/gaanbot/internal/datalayer"
	"github.com/gaanbot/gaanbot/internal/transcode"
)

const contentType = "application/octet-stream"

// Store adapts blob storage to the supervisor's frame store.
type Store struct {
	blobs datalayer.BlobStorage
}

var _ transcode.FrameStore = (*Store)(nil)

func New(blobs datalayer.BlobStorage) *Store {
	return &Store{blobs: blobs}
}

// objectKey hashes the archive key so arbitrary URLs and search queries make
// valid, fixed-length object names.
func objectKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return "tracks/" + hex.EncodeToString(sum[:])
}

func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := s.blobs.Get(ctx, objectKey(key))
	if errors.Is(err, datalayer.ErrBlobNotFound) {
		return nil, transcode.ErrNotArchived
	}
	if err != nil {
		return nil, fmt.Errorf("open archived track: %w", err)
	}
	return rc, nil
}

func (s *Store) Save(ctx context.Context, key string, data []byte) error {
	err := s.blobs.Put(ctx, objectKey(key), bytes.NewReader(data), datalayer.PutOptions{
		Size:        int64(len(data)),
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("archive track: %w", err)
	}
	return nil
}
