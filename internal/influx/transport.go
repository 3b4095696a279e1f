package influx

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/klauspost/compress/gzip"
)

// maxErrorBody caps how much of an error response is read back for
// logging.
const maxErrorBody = 32 * 1024

// Transport posts one encoded batch to the database.
type Transport interface {
	// Post sends body as a single request. A nil return means the remote
	// durably accepted the batch. Any error means the batch is lost:
	// *ServerError for a non-204 response, a wrapped transport error for
	// connection-level failures.
	Post(body []byte) error
}

// ServerError is a non-204 response from the database.
type ServerError struct {
	StatusCode int
	Body       string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("influx: server returned %d: %s", e.StatusCode, e.Body)
}

// HTTPTransport posts batches to a fixed, pre-resolved write URL.
type HTTPTransport struct {
	url    string
	client *http.Client
	gzip   bool
}

// NewHTTPTransport builds the transport for cfg. The target URL is
// resolved once: http://<host>:<port>/write?db=<db>&precision=ns.
func NewHTTPTransport(cfg Config) *HTTPTransport {
	cfg = cfg.withDefaults()

	u := url.URL{
		Scheme: "http",
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   "/write",
	}
	q := url.Values{}
	q.Set("db", cfg.Database)
	q.Set("precision", "ns")
	u.RawQuery = q.Encode()

	return &HTTPTransport{
		url:    u.String(),
		client: &http.Client{Timeout: cfg.Timeout},
		gzip:   cfg.Gzip,
	}
}

var gzipPool = sync.Pool{
	New: func() interface{} { return gzip.NewWriter(io.Discard) },
}

// Post implements Transport.
func (t *HTTPTransport) Post(body []byte) error {
	var reader io.Reader = bytes.NewReader(body)

	if t.gzip {
		var compressed bytes.Buffer
		gz := gzipPool.Get().(*gzip.Writer)
		gz.Reset(&compressed)
		if _, err := gz.Write(body); err != nil {
			gzipPool.Put(gz)
			return fmt.Errorf("influx: compress body: %w", err)
		}
		if err := gz.Close(); err != nil {
			gzipPool.Put(gz)
			return fmt.Errorf("influx: compress body: %w", err)
		}
		gzipPool.Put(gz)
		reader = &compressed
	}

	req, err := http.NewRequest(http.MethodPost, t.url, reader)
	if err != nil {
		return fmt.Errorf("influx: build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if t.gzip {
		req.Header.Set("Content-Encoding", "gzip")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("influx: post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &ServerError{StatusCode: resp.StatusCode, Body: string(respBody)}
}
