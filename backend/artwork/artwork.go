package artwork

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/b0bbywan/go-odio-players/cache"
	"github.com/b0bbywan/go-odio-players/config"
	"github.com/b0bbywan/go-odio-players/logger"
)

const (
	cacheEntries   = 64
	janitorPeriod  = time.Minute
	defaultType    = "application/octet-stream"
	userAgentValue = config.AppName + "/" + config.AppVersion
)

// Image is a fetched cover.
type Image struct {
	Data        []byte
	ContentType string
}

// request is one shared fetch. refs counts the callers still waiting on it.
type request struct {
	refs   int
	cancel context.CancelFunc
	done   chan struct{}
	img    Image
	err    error
}

// Fetcher downloads cover art once per URL and shares the result between callers.
type Fetcher struct {
	client  *http.Client
	maxSize int64
	timeout time.Duration
	cache   *cache.Cache[Image]

	mu       sync.Mutex
	inflight map[string]*request
}

// New creates a fetcher. It returns nil when artwork is disabled.
func New(ctx context.Context, cfg *config.ArtworkConfig) *Fetcher {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	f := &Fetcher{
		client:   &http.Client{},
		maxSize:  cfg.MaxSize,
		timeout:  cfg.Timeout,
		cache:    cache.NewBounded[Image](cfg.TTL, cacheEntries),
		inflight: make(map[string]*request),
	}
	go f.cache.Janitor(ctx, janitorPeriod)
	return f
}

// Fetch returns the bytes behind rawURL. Concurrent callers for the same URL
// share one download; the download is cancelled once every caller gave up.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Image, error) {
	if img, ok := f.cache.Get(rawURL); ok {
		return img, nil
	}

	f.mu.Lock()
	req, ok := f.inflight[rawURL]
	if !ok {
		fetchCtx, cancel := context.WithTimeout(context.Background(), f.timeout)
		req = &request{cancel: cancel, done: make(chan struct{})}
		f.inflight[rawURL] = req
		go f.run(fetchCtx, rawURL, req)
	}
	req.refs++
	f.mu.Unlock()

	select {
	case <-req.done:
		return req.img, req.err
	case <-ctx.Done():
		f.release(rawURL, req)
		return Image{}, ctx.Err()
	}
}

func (f *Fetcher) release(rawURL string, req *request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	req.refs--
	if req.refs > 0 {
		return
	}
	req.cancel()
	if f.inflight[rawURL] == req {
		delete(f.inflight, rawURL)
	}
	logger.Debug("[artwork] cancelled fetch of %s, no caller left", rawURL)
}

func (f *Fetcher) run(ctx context.Context, rawURL string, req *request) {
	img, err := f.load(ctx, rawURL)
	if err == nil {
		f.cache.Set(rawURL, img)
	} else if ctx.Err() == nil {
		logger.Warn("[artwork] failed to fetch %s: %v", rawURL, err)
	}
	req.cancel()

	f.mu.Lock()
	if f.inflight[rawURL] == req {
		delete(f.inflight, rawURL)
	}
	f.mu.Unlock()

	req.img, req.err = img, err
	close(req.done)
}

// waiting returns the number of callers sharing the in-flight fetch of rawURL.
func (f *Fetcher) waiting(rawURL string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if req, ok := f.inflight[rawURL]; ok {
		return req.refs
	}
	return 0
}

func (f *Fetcher) load(ctx context.Context, rawURL string) (Image, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Image{}, fmt.Errorf("invalid artwork url: %w", err)
	}

	switch u.Scheme {
	case "file":
		return f.loadFile(u.Path)
	case "http", "https":
		return f.loadHTTP(ctx, rawURL, u.Path)
	default:
		return Image{}, &UnsupportedSchemeError{Scheme: u.Scheme}
	}
}

func (f *Fetcher) loadFile(p string) (Image, error) {
	file, err := os.Open(p)
	if err != nil {
		return Image{}, fmt.Errorf("failed to open artwork file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Debug("[artwork] failed to close %s: %v", p, err)
		}
	}()

	data, err := f.readLimited(file)
	if err != nil {
		return Image{}, err
	}
	return Image{Data: data, ContentType: GuessContentType(path.Ext(p))}, nil
}

func (f *Fetcher) loadHTTP(ctx context.Context, rawURL, p string) (Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Image{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgentValue)

	resp, err := f.client.Do(req)
	if err != nil {
		return Image{}, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Image{}, &StatusError{Code: resp.StatusCode}
	}

	data, err := f.readLimited(resp.Body)
	if err != nil {
		return Image{}, err
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = GuessContentType(path.Ext(p))
	}
	return Image{Data: data, ContentType: contentType}, nil
}

func (f *Fetcher) readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, f.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read artwork: %w", err)
	}
	if int64(len(data)) > f.maxSize {
		return nil, &TooLargeError{Limit: f.maxSize}
	}
	return data, nil
}

// builtinTypes covers extensions the system mime database may lack.
var builtinTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".svg":  "image/svg+xml",
	".mp3":  "audio/mpeg",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".opus": "audio/opus",
	".m4a":  "audio/mp4",
	".wav":  "audio/wav",
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".ogv":  "video/ogg",
	".flv":  "video/x-flv",
	".wmv":  "video/x-ms-wmv",
	".mpg":  "video/mpeg",
	".mpeg": "video/mpeg",
	".3gp":  "video/3gpp",
}

// GuessContentType guesses a content type from a file extension (with or
// without the leading dot). Unknown extensions yield application/octet-stream.
func GuessContentType(ext string) string {
	if ext == "" {
		return defaultType
	}
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if t, ok := builtinTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return defaultType
}
