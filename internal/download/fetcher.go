// Package download streams one remote resource to a local file with bounded
// sequential retries.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/samvad-hq/samvad-epaper-harvester/internal/domain"
	"github.com/samvad-hq/samvad-epaper-harvester/internal/logger"
	"github.com/samvad-hq/samvad-epaper-harvester/pkg/httpclient"
)

const (
	DefaultMaxRetries = 3
	DefaultChunkSize  = 8192
)

// Policy bounds the work of one Fetch.
type Policy struct {
	MaxRetries int
	ChunkSize  int
	RetryDelay time.Duration
}

// DefaultPolicy returns three attempts, 8 KiB chunks and no delay between attempts.
func DefaultPolicy() Policy {
	return Policy{MaxRetries: DefaultMaxRetries, ChunkSize: DefaultChunkSize}
}

func (p Policy) normalized() Policy {
	if p.MaxRetries <= 0 {
		p.MaxRetries = DefaultMaxRetries
	}
	if p.ChunkSize <= 0 {
		p.ChunkSize = DefaultChunkSize
	}
	if p.RetryDelay < 0 {
		p.RetryDelay = 0
	}
	return p
}

// Fetcher downloads resources through one persistent session.
type Fetcher struct {
	client httpclient.Client
	policy Policy
	log    logger.Logger
}

// NewFetcher binds a fetcher to client, normally the adapter's session.
func NewFetcher(client httpclient.Client, policy Policy, log logger.Logger) (*Fetcher, error) {
	if client == nil {
		return nil, errors.New("download: http client is nil")
	}
	return &Fetcher{client: client, policy: policy.normalized(), log: logger.Ensure(log)}, nil
}

// Policy returns the effective policy.
func (f *Fetcher) Policy() Policy {
	return f.policy
}

// Fetch writes url to dest, retrying transport errors, non-200 statuses and
// write failures up to MaxRetries attempts. It reports false only after every
// attempt failed; a failed attempt leaves no partial file behind.
func (f *Fetcher) Fetch(ctx context.Context, url, dest string, onProgress domain.ProgressFunc) bool {
	if f == nil {
		return false
	}
	if onProgress == nil {
		onProgress = func(domain.ProgressEvent) {}
	}

	for attempt := 1; attempt <= f.policy.MaxRetries; attempt++ {
		err := f.attempt(ctx, url, dest, onProgress)
		if err == nil {
			return true
		}

		f.log.DebugObj("download attempt failed", "download", map[string]any{
			"url":     url,
			"attempt": attempt,
			"of":      f.policy.MaxRetries,
			"error":   err.Error(),
		})

		if ctx.Err() != nil {
			break
		}
		if attempt < f.policy.MaxRetries && !sleep(ctx, f.policy.RetryDelay) {
			break
		}
	}

	f.log.DebugObj("download gave up", "download", map[string]any{
		"url":      url,
		"attempts": f.policy.MaxRetries,
	})
	return false
}

func (f *Fetcher) attempt(ctx context.Context, url, dest string, onProgress domain.ProgressFunc) (err error) {
	resp, err := f.client.Stream(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	body := resp.Body()
	if body != nil {
		defer body.Close()
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode())
	}
	if body == nil {
		return errors.New("response has no body")
	}

	if dir := filepath.Dir(dest); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create destination directory: %w", err)
		}
	}
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close destination: %w", cerr)
		}
		if err != nil {
			_ = os.Remove(dest)
		}
	}()

	total := resp.ContentLength()
	onProgress(domain.ProgressEvent{Resource: url, Total: total, Phase: domain.PhaseStarting})

	done, err := copyChunks(ctx, out, body, f.policy.ChunkSize, func(n int64) {
		onProgress(domain.ProgressEvent{Resource: url, Done: n, Total: total, Phase: domain.PhaseDownloading})
	})
	if err != nil {
		return err
	}

	onProgress(domain.ProgressEvent{Resource: url, Done: done, Total: total, Phase: domain.PhaseCompleted})
	return nil
}

// copyChunks copies src to dst chunk by chunk, calling progress with the
// running byte count after every successful write.
func copyChunks(ctx context.Context, dst io.Writer, src io.Reader, chunk int, progress func(int64)) (int64, error) {
	buf := make([]byte, chunk)
	var done int64
	for {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return done, fmt.Errorf("write: %w", werr)
			}
			done += int64(n)
			progress(done)
		}
		if rerr == io.EOF {
			return done, nil
		}
		if rerr != nil {
			return done, fmt.Errorf("read: %w", rerr)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
