// Package download fetches package archives into the local cache, retrying
// transient failures with exponential backoff.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/afero"

	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/branding"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/logging"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/userdata"
)

// Source kinds.
const (
	SourceHTTP = "http"
	SourceFile = "file"
)

const (
	// RetryInitialInterval is the initial interval for exponential backoff.
	RetryInitialInterval = 500 * time.Millisecond
	// RetryMaxInterval is the maximum interval for exponential backoff.
	RetryMaxInterval = 15 * time.Second
)

// StatusError reports an unexpected HTTP status.
type StatusError struct {
	URL  string
	Code int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("download %s returned status %d", e.URL, e.Code)
}

// Downloader fetches artifacts into CacheDir.
type Downloader struct {
	Fs       afero.Fs
	CacheDir string
	Client   *http.Client
	// Retries is the number of retries after the first attempt.
	Retries int
	// Progress receives a percentage line while downloading. May be nil.
	Progress io.Writer

	// newBackOff is replaced in tests to avoid sleeping.
	newBackOff func() backoff.BackOff
}

// New creates a Downloader writing to cacheDir on the OS filesystem.
func New(cacheDir string, retries int, timeout time.Duration) *Downloader {
	return &Downloader{
		Fs:       afero.NewOsFs(),
		CacheDir: cacheDir,
		Client:   &http.Client{Timeout: timeout},
		Retries:  retries,
	}
}

// SourceKind derives the source kind from a URL.
func SourceKind(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return SourceHTTP
	}
	return SourceFile
}

// CachePath returns where the artifact for cacheKey is stored. The file
// keeps the URL's archive extension so extraction can detect the format.
func (d *Downloader) CachePath(rawURL, cacheKey string) string {
	return filepath.Join(d.CacheDir, cacheKey+archiveExt(rawURL))
}

// Download fetches rawURL into the cache under cacheKey and returns the
// cached path. A cached artifact is returned without network access.
func (d *Downloader) Download(ctx context.Context, rawURL, cacheKey, sourceKind string) (string, error) {
	dest := d.CachePath(rawURL, cacheKey)
	if ok, _ := afero.Exists(d.Fs, dest); ok {
		logging.Debug().Str("path", dest).Msg("using cached download")
		return dest, nil
	}
	if err := d.Fs.MkdirAll(d.CacheDir, userdata.DirPermNormal); err != nil {
		return "", fmt.Errorf("creating cache directory: %w", err)
	}
	if sourceKind == "" {
		sourceKind = SourceKind(rawURL)
	}

	var fetch func(context.Context, string) error
	switch sourceKind {
	case SourceHTTP:
		fetch = func(ctx context.Context, tmp string) error { return d.fetchHTTP(ctx, rawURL, tmp) }
	case SourceFile:
		fetch = func(_ context.Context, tmp string) error { return d.copyLocal(rawURL, tmp) }
	default:
		return "", fmt.Errorf("unknown source kind %q", sourceKind)
	}

	tmp := dest + ".part"
	attempt := 0
	op := func() error {
		attempt++
		err := fetch(ctx, tmp)
		if err != nil {
			_ = d.Fs.Remove(tmp)
			logging.Warn().Err(err).Int("attempt", attempt).Str("url", rawURL).Msg("download failed")
		}
		return err
	}
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(d.backOff(), uint64(d.Retries)), ctx)); err != nil {
		return "", fmt.Errorf("downloading %s: %w", rawURL, err)
	}
	if err := d.Fs.Rename(tmp, dest); err != nil {
		return "", fmt.Errorf("storing download: %w", err)
	}
	return dest, nil
}

func (d *Downloader) backOff() backoff.BackOff {
	if d.newBackOff != nil {
		return d.newBackOff()
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = RetryInitialInterval
	b.MaxInterval = RetryMaxInterval
	b.RandomizationFactor = 0.5
	b.Reset()
	return b
}

func (d *Downloader) fetchHTTP(ctx context.Context, rawURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("creating download request: %w", err))
	}
	req.Header.Set("User-Agent", branding.GlobalCLIName()+"-downloader")

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := &StatusError{URL: rawURL, Code: resp.StatusCode}
		// Client errors other than throttling will not change on retry.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return backoff.Permanent(err)
		}
		return err
	}

	f, err := d.Fs.Create(dest)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("creating download file: %w", err))
	}
	defer f.Close()

	var w io.Writer = f
	if d.Progress != nil && resp.ContentLength > 0 {
		w = io.MultiWriter(f, &progress{out: d.Progress, total: resp.ContentLength, last: -1})
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("reading download stream: %w", err)
	}
	if d.Progress != nil && resp.ContentLength > 0 {
		fmt.Fprintln(d.Progress)
	}
	return nil
}

func (d *Downloader) copyLocal(rawURL, dest string) error {
	src := strings.TrimPrefix(rawURL, "file://")
	in, err := d.Fs.Open(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return backoff.Permanent(fmt.Errorf("source %s: %w", src, err))
		}
		return err
	}
	defer in.Close()

	out, err := d.Fs.Create(dest)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("creating download file: %w", err))
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return nil
}

// progress prints a percentage each time it changes.
type progress struct {
	out     io.Writer
	total   int64
	written int64
	last    int
}

func (p *progress) Write(b []byte) (int, error) {
	p.written += int64(len(b))
	if percent := int(p.written * 100 / p.total); percent != p.last {
		fmt.Fprintf(p.out, "\rDownloading... %d%%", percent)
		p.last = percent
	}
	return len(b), nil
}

// archiveExt returns the archive extension of the URL's last path element.
func archiveExt(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		p = u.Path
	}
	base := strings.ToLower(path.Base(p))
	for _, ext := range []string{".tar.gz", ".tar.bz2", ".tar.xz"} {
		if strings.HasSuffix(base, ext) {
			return ext
		}
	}
	return path.Ext(base)
}
