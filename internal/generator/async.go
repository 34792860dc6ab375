package generator

import (
	"context"
	"net/http"
	"time"
)

// Result is the outcome of an asynchronous generation.
type Result struct {
	Text    string
	Err     error
	Elapsed time.Duration
}

// AsyncGenerator is the non-blocking strategy: GenerateAsync dispatches the call and
// returns a future immediately. Its transport keeps a large pool of idle keep-alive
// connections so concurrent calls reuse connections instead of dialing.
type AsyncGenerator struct {
	endpoint geminiEndpoint
	client   *http.Client
}

// NewAsync builds an AsyncGenerator; a nil client gets a pooled one with timeout.
func NewAsync(apiURL, apiKey, model string, timeout time.Duration, client *http.Client) *AsyncGenerator {
	if client == nil {
		client = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				ForceAttemptHTTP2:   true,
				MaxIdleConns:        256,
				MaxIdleConnsPerHost: 128,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &AsyncGenerator{
		endpoint: geminiEndpoint{URL: apiURL, APIKey: apiKey, Model: model},
		client:   client,
	}
}

func (a *AsyncGenerator) Name() string { return KindAsync }

// GenerateAsync starts the remote call and returns a channel that receives exactly one
// Result and is then closed. The channel is buffered, so an abandoned future does not
// leak its goroutine; the call itself stops when ctx is cancelled.
func (a *AsyncGenerator) GenerateAsync(ctx context.Context, req EmailRequest) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		start := time.Now()
		text, err := a.endpoint.call(ctx, a.client, a.Name(), req)
		out <- Result{Text: text, Err: err, Elapsed: time.Since(start)}
	}()
	return out
}

// Generate awaits the future returned by GenerateAsync.
func (a *AsyncGenerator) Generate(ctx context.Context, req EmailRequest) (string, error) {
	select {
	case res := <-a.GenerateAsync(ctx, req):
		return res.Text, res.Err
	case <-ctx.Done():
		return "", &RemoteCallError{Generator: a.Name(), Err: ctx.Err()}
	}
}
