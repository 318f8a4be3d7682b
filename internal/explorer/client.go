package explorer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	// ErrFetchFailed wraps any transport or upstream failure.
	ErrFetchFailed = errors.New("explorer fetch failed")
	// ErrAddressNotFound means the explorer does not know the address.
	ErrAddressNotFound = errors.New("address not found")
)

const (
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 32 << 20
	userAgent      = "address-risk-engine/1.0"
)

// httpGetter is the small HTTP layer shared by every explorer client.
type httpGetter struct {
	client  *http.Client
	headers map[string]string
}

func newHTTPGetter(timeout time.Duration) httpGetter {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return httpGetter{client: &http.Client{Timeout: timeout}}
}

// get returns the body of a 200 response. 404 maps to ErrAddressNotFound,
// anything else to ErrFetchFailed.
func (g httpGetter) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrFetchFailed, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	for k, v := range g.headers {
		req.Header.Set(k, v)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrFetchFailed, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrAddressNotFound
	default:
		return nil, fmt.Errorf("%w: status %d", ErrFetchFailed, resp.StatusCode)
	}
}
