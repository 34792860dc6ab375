package generator

import (
	"context"
	"net/http"
	"time"
)

// BlockingGenerator issues the remote call synchronously on the caller's goroutine
// through its own client. The transport keeps the net/http default of two idle
// connections per host, so concurrent callers mostly dial fresh connections.
type BlockingGenerator struct {
	endpoint geminiEndpoint
	client   *http.Client
}

// NewBlocking builds a BlockingGenerator; a nil client gets a dedicated one with timeout.
func NewBlocking(apiURL, apiKey, model string, timeout time.Duration, client *http.Client) *BlockingGenerator {
	if client == nil {
		client = &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{Proxy: http.ProxyFromEnvironment},
		}
	}
	return &BlockingGenerator{
		endpoint: geminiEndpoint{URL: apiURL, APIKey: apiKey, Model: model},
		client:   client,
	}
}

func (b *BlockingGenerator) Name() string { return KindBlocking }

func (b *BlockingGenerator) Generate(ctx context.Context, req EmailRequest) (string, error) {
	return b.endpoint.call(ctx, b.client, b.Name(), req)
}
