package probe

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// maxBodyBytes bounds how much of a health or stats response is read.
const maxBodyBytes = 1 << 20

// NewHTTPClient returns a client suited to short, frequent polling requests.
// It sets no overall Timeout; each call carries its own deadline.
func NewHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}

	return &http.Client{Transport: transport}
}

type response struct {
	statusCode int
	body       []byte
}

func (r *response) ok() bool {
	return r.statusCode >= 200 && r.statusCode < 300
}

// fetch issues a GET bounded by timeout. A nil response means the instance
// could not be reached. A non-nil response with an error means headers arrived
// but the body could not be read in time.
func fetch(ctx context.Context, client *http.Client, rawURL string, timeout time.Duration) (*response, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")

	res, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	out := &response{statusCode: res.StatusCode}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return out, fmt.Errorf("read body: %w", err)
	}
	out.body = body

	return out, nil
}
