package signals

import (
	"context"
	"fmt"
	"net/http"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
)

type ClientOptions struct {
	UserAgent        string
	Timeout          time.Duration
	CloudflareBypass bool
}

// NewHTTPClient builds the client shared by all fetchers: fixed browser user
// agent, bounded timeout, no retries. The cookie jar is disabled: the only
// cookies ever sent are the ones built from the current session.
func NewHTTPClient(opts ClientOptions) *resty.Client {
	client := resty.New()
	client.SetCookieJar(nil)
	client.SetHeader("User-Agent", opts.UserAgent)
	client.SetTimeout(opts.Timeout)

	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}

	return client
}

// StatusError reports a response that arrived with a non-200 status.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error: %d %s (%s)", e.StatusCode, e.Status, e.URL)
}

func fetchPage(ctx context.Context, client *resty.Client, url string, headers map[string]string) ([]byte, error) {
	req := client.R().SetContext(ctx)
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}

	resp, err := req.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode(), Status: http.StatusText(resp.StatusCode())}
	}

	return resp.Body(), nil
}
