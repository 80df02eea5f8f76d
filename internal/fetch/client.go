// Package fetch provides the outbound HTTP client used for optional
// library enrichment: OpenLibrary metadata lookups and remote cover
// downloads. Nothing in the storage path depends on it; failures degrade
// to the metadata already extracted locally.
package fetch

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
)

// Client wraps resty over a retrying transport.
type Client struct {
	resty *resty.Client
}

// Options configures the client.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Retries   int
}

// DefaultOptions returns sensible fetch defaults.
func DefaultOptions() Options {
	return Options{
		Timeout:   15 * time.Second,
		UserAgent: "quillreader/1.0",
		Retries:   3,
	}
}

// NewClient creates a fetch client. Retries happen in the transport with
// exponential backoff; resty adds timeout and header handling on top.
func NewClient(opts Options) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.Retries
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = nil

	rc := resty.NewWithClient(retryClient.StandardClient())
	rc.SetTimeout(opts.Timeout)
	rc.SetHeader("User-Agent", opts.UserAgent)

	return &Client{resty: rc}
}

// SetBaseURL points the client at a fixed host, mainly for tests.
func (c *Client) SetBaseURL(url string) {
	c.resty.SetBaseURL(url)
}

// GetJSON fetches a URL and decodes the JSON body into out.
func (c *Client) GetJSON(req *resty.Request, url string, out any) error {
	resp, err := req.SetResult(out).Get(url)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	if resp.IsError() {
		return fmt.Errorf("fetch %s: status %d", url, resp.StatusCode())
	}
	return nil
}

// R starts a request.
func (c *Client) R() *resty.Request {
	return c.resty.R()
}
