package generator

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// MockGenerator returns a canned reply after a configurable delay.
// Used for development and testing without a real API key.
type MockGenerator struct {
	Label string
	Delay time.Duration
	Reply string
	// Err, when set, is returned (wrapped in a RemoteCallError) from every call.
	Err error
	// Serialize makes calls queue behind each other, emulating a client that
	// can only have one request on the wire at a time.
	Serialize bool

	mu    sync.Mutex
	calls atomic.Int64
}

func (m *MockGenerator) Name() string {
	if m.Label != "" {
		return m.Label
	}
	return KindMock
}

func (m *MockGenerator) Generate(ctx context.Context, req EmailRequest) (string, error) {
	m.calls.Add(1)
	if m.Serialize {
		m.mu.Lock()
		defer m.mu.Unlock()
	}

	if m.Delay > 0 {
		timer := time.NewTimer(m.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return "", &RemoteCallError{Generator: m.Name(), Err: ctx.Err()}
		}
	}

	if m.Err != nil {
		return "", &RemoteCallError{Generator: m.Name(), Err: m.Err}
	}
	if m.Reply != "" {
		return m.Reply, nil
	}

	reply := "Thank you for your email. I have received your message and will follow up shortly."
	if tone := strings.TrimSpace(req.Tone); tone != "" {
		reply += " (" + tone + ")"
	}
	return reply, nil
}

// Calls reports how many times Generate has been invoked.
func (m *MockGenerator) Calls() int64 {
	return m.calls.Load()
}
