package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ecopia-map/cesium_fetcher/internal/errs"
	"github.com/ecopia-map/cesium_fetcher/internal/tileset"
	"github.com/golang/glog"
)

const (
	DefaultBaseURL  = "https://tile.googleapis.com"
	DefaultRootPath = "/v1/3dtiles/root.json"
	DefaultTimeout  = 30 * time.Second

	UserAgent = "cesium_fetcher/1.0"

	maxErrorBody = 64 << 10
)

type Options struct {
	BaseURL    string
	RootPath   string
	Timeout    time.Duration
	Retry      *RetryStrategy
	HTTPClient *http.Client
}

// Client talks to a 3D Tiles service. Every request carries the API key; every request but the root one also
// carries the session of the document it was discovered in.
type Client struct {
	baseURL    *url.URL
	rootPath   string
	httpClient *http.Client
	retry      *RetryStrategy
}

// Rewinder is implemented by download targets that can be emptied before a retry.
type Rewinder interface {
	Rewind() error
}

func NewClient(opts Options) (*Client, error) {
	const op = "create client"

	base := opts.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	baseURL, err := url.Parse(strings.TrimSuffix(base, "/"))
	if err != nil {
		return nil, errs.Wrapf(errs.Configuration, op, err, "base url %q", base)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, errs.New(errs.Configuration, op, "base url %q must be absolute", base)
	}

	rootPath := opts.RootPath
	if rootPath == "" {
		rootPath = DefaultRootPath
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: 16,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	retry := opts.Retry
	if retry == nil {
		retry = DefaultRetryStrategy()
	}

	return &Client{
		baseURL:    baseURL,
		rootPath:   rootPath,
		httpClient: httpClient,
		retry:      retry,
	}, nil
}

func (c *Client) RootPath() string {
	return c.rootPath
}

func (c *Client) IsRoot(partialURI string) bool {
	return tileset.URIPath(partialURI) == tileset.URIPath(c.rootPath)
}

// URL builds the request URL for a partial URI: base URL, then the URI's own path and query, then key and
// session. A session already present in the URI is kept. Absolute URIs on another host never get the key.
func (c *Client) URL(partialURI string, creds Credentials) (string, error) {
	ref, err := url.Parse(partialURI)
	if err != nil {
		return "", errs.Wrapf(errs.Parse, "build url", err, "content uri %q", partialURI)
	}

	var u url.URL
	sameHost := true
	if ref.IsAbs() {
		u = *ref
		sameHost = strings.EqualFold(u.Host, c.baseURL.Host)
	} else {
		u = *c.baseURL
		p := ref.Path
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		u.Path = u.Path + p
		u.RawPath = ""
		u.RawQuery = ref.RawQuery
	}

	q := u.Query()
	if creds.APIKey != "" && sameHost {
		q.Set("key", creds.APIKey)
	}
	if !c.IsRoot(partialURI) && creds.Session != "" && q.Get("session") == "" {
		q.Set("session", creds.Session)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// FetchTileset downloads and decodes a tileset document.
func (c *Client) FetchTileset(ctx context.Context, partialURI string, creds Credentials) (*tileset.Tileset, error) {
	var ts *tileset.Tileset
	err := c.get(ctx, partialURI, creds, func(resp *http.Response) error {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errs.Temporary("read "+tileset.URIPath(partialURI), err)
		}
		ts, err = tileset.Decode(data, tileset.URIPath(partialURI))
		return err
	})
	if err != nil {
		return nil, err
	}
	return ts, nil
}

// FetchRoot downloads the root tileset. Root requests never carry a session.
func (c *Client) FetchRoot(ctx context.Context, apiKey string) (*tileset.Tileset, error) {
	return c.FetchTileset(ctx, c.rootPath, Credentials{APIKey: apiKey})
}

// Download streams a payload into w and returns the number of bytes written. A retry after a partial write
// needs w to implement Rewinder.
func (c *Client) Download(ctx context.Context, partialURI string, creds Credentials, w io.Writer) (int64, error) {
	op := "download " + tileset.URIPath(partialURI)

	var written int64
	err := c.get(ctx, partialURI, creds, func(resp *http.Response) error {
		if written > 0 {
			rw, ok := w.(Rewinder)
			if !ok {
				return errs.New(errs.Transport, op, "cannot restart a partially written download")
			}
			if err := rw.Rewind(); err != nil {
				return errs.Wrapf(errs.Configuration, op, err, "rewinding target")
			}
			written = 0
		}

		n, err := io.Copy(w, resp.Body)
		written = n
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errs.Temporary(op, err)
		}
		return nil
	})
	return written, err
}

func (c *Client) get(ctx context.Context, partialURI string, creds Credentials, handle func(resp *http.Response) error) error {
	target, err := c.URL(partialURI, creds)
	if err != nil {
		return err
	}
	op := "GET " + tileset.URIPath(partialURI)

	var lastErr error
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			wait := c.retry.Backoff(attempt)
			glog.Warningf("%s: attempt %d failed, retrying in %s: %v", op, attempt, wait, lastErr)
			if err := sleepContext(ctx, wait); err != nil {
				return err
			}
		}

		lastErr = c.attempt(ctx, op, target, handle)
		if lastErr == nil || !errs.Retryable(lastErr) || attempt >= c.retry.MaxRetries {
			return lastErr
		}
	}
}

func (c *Client) attempt(ctx context.Context, op string, target string, handle func(resp *http.Response) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return errs.Wrap(errs.Configuration, op, err)
	}
	req.Header.Set("User-Agent", UserAgent)

	if glog.V(2) {
		glog.Infof("GET %s", redactURL(target))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if ue, ok := err.(*url.Error); ok {
			ue.URL = redactURL(ue.URL)
		}
		return errs.Temporary(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(op, resp)
	}
	return handle(resp)
}

// statusError classifies a non-2xx answer. Rate limiting, timeouts and server errors are worth retrying.
func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	message := http.StatusText(resp.StatusCode)
	if envelope, ok := tileset.ParseErrorEnvelope(body); ok && envelope.Message != "" {
		message = envelope.Message
	}

	e := errs.New(errs.Transport, op, "status %d: %s", resp.StatusCode, message).(*errs.Error)
	switch {
	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode >= 500:
		e.Temporary = true
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		glog.Warningf("%s: rate limited by the tile service", op)
	}
	return e
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Get("key") != "" {
		q.Set("key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
