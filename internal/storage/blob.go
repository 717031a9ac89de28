package storage

import (
	"context"
	"io"
)

// ProgressFunc receives cumulative transferred bytes. total is the payload
// size; backends that cannot determine it report the caller-declared size.
type ProgressFunc func(transferred, total int64)

// BlobStore is the object-storage collaborator. Put streams the payload to
// path, reporting progress as bytes leave the process, and returns the final
// addressable URL. Cancellation is cooperative through ctx. Implementations
// classify backend failures into the pkg/errors taxonomy.
type BlobStore interface {
	Put(ctx context.Context, path string, payload []byte, contentType string, onProgress ProgressFunc) (string, error)
}

// progressReader counts bytes as the SDK drains the payload. Seeking resets
// the counter so retried reads do not over-report.
type progressReader struct {
	r     io.ReadSeeker
	total int64
	read  int64
	on    ProgressFunc
}

func newProgressReader(r io.ReadSeeker, total int64, on ProgressFunc) *progressReader {
	return &progressReader{r: r, total: total, on: on}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		if p.on != nil {
			p.on(p.read, p.total)
		}
	}
	return n, err
}

func (p *progressReader) Seek(offset int64, whence int) (int64, error) {
	pos, err := p.r.Seek(offset, whence)
	if err == nil {
		p.read = pos
	}
	return pos, err
}
