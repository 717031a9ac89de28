package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/smithy-go"

	clipstream_errors "clipstream/pkg/errors"
)

func TestProgressReaderCountsCumulativeBytes(t *testing.T) {
	payload := make([]byte, 1000)
	var last, total int64
	r := newProgressReader(bytes.NewReader(payload), int64(len(payload)), func(read, tot int64) {
		last = read
		total = tot
	})

	n, err := io.Copy(io.Discard, r)
	if err != nil || n != 1000 {
		t.Fatalf("copy = %d, %v", n, err)
	}
	if last != 1000 {
		t.Fatalf("final progress report %d, want 1000", last)
	}
	if total != 1000 {
		t.Fatalf("total %d, want 1000", total)
	}
}

func TestProgressReaderSeekResetsCounter(t *testing.T) {
	payload := make([]byte, 100)
	var last int64
	r := newProgressReader(bytes.NewReader(payload), int64(len(payload)), func(read, _ int64) {
		last = read
	})

	if _, err := io.Copy(io.Discard, r); err != nil {
		t.Fatalf("copy failed: %v", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		t.Fatalf("seek failed: %v", err)
	}

	// A retried read after rewind must not over-report.
	buf := make([]byte, 40)
	if _, err := r.Read(buf); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if last != 40 {
		t.Fatalf("progress after rewind %d, want 40", last)
	}
}

func TestFileURLVariants(t *testing.T) {
	cases := []struct {
		name string
		cfg  S3Config
		want string
	}{
		{
			name: "public base wins",
			cfg:  S3Config{Bucket: "media", Region: "us-east-1", Endpoint: "http://minio:9000", PublicBase: "https://cdn.example.com"},
			want: "https://cdn.example.com/posts/p1/media.jpg",
		},
		{
			name: "custom endpoint is path-style",
			cfg:  S3Config{Bucket: "media", Region: "us-east-1", Endpoint: "http://minio:9000"},
			want: "http://minio:9000/media/posts/p1/media.jpg",
		},
		{
			name: "plain aws is virtual-hosted",
			cfg:  S3Config{Bucket: "media", Region: "us-east-1"},
			want: "https://media.s3.us-east-1.amazonaws.com/posts/p1/media.jpg",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			client := &Client{cfg: c.cfg}
			if got := client.FileURL("posts/p1/media.jpg"); got != c.want {
				t.Fatalf("FileURL = %q, want %q", got, c.want)
			}
		})
	}

	if got := (&Client{}).FileURL(""); got != "" {
		t.Fatalf("empty key should yield empty URL, got %q", got)
	}
}

func TestClassifyS3Error(t *testing.T) {
	cases := []struct {
		code string
		want error
	}{
		{"AccessDenied", clipstream_errors.ErrForbidden},
		{"AllAccessDisabled", clipstream_errors.ErrForbidden},
		{"InvalidAccessKeyId", clipstream_errors.ErrUnauthorized},
		{"SignatureDoesNotMatch", clipstream_errors.ErrUnauthorized},
		{"ExpiredToken", clipstream_errors.ErrUnauthorized},
		{"QuotaExceeded", clipstream_errors.ErrQuotaExceeded},
		{"EntityTooLarge", clipstream_errors.ErrQuotaExceeded},
		{"SlowDown", clipstream_errors.ErrNetwork},
	}
	for _, c := range cases {
		err := &smithy.GenericAPIError{Code: c.code, Message: c.code}
		if got := classifyS3Error(err); !errors.Is(got, c.want) {
			t.Fatalf("code %s classified as %v, want %v", c.code, got, c.want)
		}
	}
}

func TestClassifyS3ErrorPassesContextErrorsThrough(t *testing.T) {
	if got := classifyS3Error(context.Canceled); got != context.Canceled {
		t.Fatalf("context.Canceled should pass through, got %v", got)
	}
	if got := classifyS3Error(context.DeadlineExceeded); got != context.DeadlineExceeded {
		t.Fatalf("context.DeadlineExceeded should pass through, got %v", got)
	}
}
