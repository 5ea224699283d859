// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"bufio"
	"bytes"
	"io"
	"log/slog"

	"github.com/zhanleewo/fuse/pkg/archive"
)

// DefaultBufferSize bounds the bytes buffered between the writer goroutine
// and the reader.
const DefaultBufferSize = 32 * 1024

type (
	// Source is something OpenStream can serialize and then release.
	// *archive.Archive satisfies it.
	Source interface {
		io.WriterTo
		io.Closer
	}

	// StreamOption configures OpenStream.
	StreamOption func(*streamOptions)

	streamOptions struct {
		bufferSize int
		propagate  bool
		logger     *slog.Logger
	}

	// passthrough streams the bytes an archive was read from and releases
	// the archive afterwards.
	passthrough struct {
		a *archive.Archive
	}
)

// WithBufferSize sets the write buffer size; values <= 0 keep the default.
func WithBufferSize(n int) StreamOption {
	return func(o *streamOptions) {
		if n > 0 {
			o.bufferSize = n
		}
	}
}

// WithErrorPropagation makes a write failure surface as the error returned
// by Read instead of a silent early EOF.
func WithErrorPropagation() StreamOption {
	return func(o *streamOptions) { o.propagate = true }
}

func withLogger(l *slog.Logger) StreamOption {
	return func(o *streamOptions) { o.logger = l }
}

// OpenStream serializes src on a background goroutine and returns the
// reading end. src is closed once writing ends, whatever the outcome.
// Closing the returned reader early makes the goroutine stop.
func OpenStream(src Source, opts ...StreamOption) io.ReadCloser {
	o := streamOptions{bufferSize: DefaultBufferSize, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	pr, pw := io.Pipe()
	go func() {
		err := writeBuffered(src, pw, o.bufferSize)
		if closeErr := src.Close(); closeErr != nil {
			o.logger.Warn("bundle resources cannot be released", "error", closeErr)
		}
		if err != nil {
			o.logger.Warn("bundle cannot be generated", "error", err)
			if o.propagate {
				_ = pw.CloseWithError(err)
				return
			}
		}
		_ = pw.Close()
	}()
	return pr
}

func writeBuffered(src Source, w io.Writer, size int) error {
	bw := bufio.NewWriterSize(w, size)
	if _, err := src.WriteTo(bw); err != nil {
		return err
	}
	return bw.Flush()
}

func (p passthrough) WriteTo(w io.Writer) (int64, error) {
	return bytes.NewReader(p.a.Original()).WriteTo(w)
}

func (p passthrough) Close() error { return p.a.Close() }
