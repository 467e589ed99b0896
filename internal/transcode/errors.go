package transcode

import "errors"

var (
	// ErrSourceUnavailable means the source could not be opened or decoded.
	// The failure is specific to the source, not to this process.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrSpawnFailed means the transcoder subprocess could not be started.
	ErrSpawnFailed = errors.New("failed to spawn transcoder")

	// ErrCapacityExceeded means the configured maximum number of concurrent
	// transcodes has been reached.
	ErrCapacityExceeded = errors.New("transcode capacity exceeded")

	// ErrStallTimeout means no frame arrived within the stall timeout while
	// the stream was expected to be producing.
	ErrStallTimeout = errors.New("stream stalled")

	// ErrPipe is an unexpected I/O failure between the subprocess and the
	// consumer after frames have already been delivered.
	ErrPipe = errors.New("frame pipe error")
)
