package generator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mwiater/emailwriter/internal/appconfig"
)

func TestNewSelectsStrategy(t *testing.T) {
	cfg := appconfig.Default()
	cfg.Gemini.APIKey = "k"

	tests := []struct {
		kind     string
		wantName string
		wantType string
	}{
		{"", KindBlocking, "*generator.BlockingGenerator"},
		{"blocking", KindBlocking, "*generator.BlockingGenerator"},
		{" Async ", KindAsync, "*generator.AsyncGenerator"},
		{"openai", KindOpenAI, "*generator.OpenAIGenerator"},
		{"mock", KindMock, "*generator.MockGenerator"},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			g, err := New(tt.kind, &cfg)
			if err != nil {
				t.Fatalf("New(%q): %v", tt.kind, err)
			}
			if g.Name() != tt.wantName {
				t.Errorf("Name: got %q, want %q", g.Name(), tt.wantName)
			}
			if got := typeName(g); got != tt.wantType {
				t.Errorf("type: got %s, want %s", got, tt.wantType)
			}
		})
	}
}

func typeName(g Generator) string {
	switch g.(type) {
	case *BlockingGenerator:
		return "*generator.BlockingGenerator"
	case *AsyncGenerator:
		return "*generator.AsyncGenerator"
	case *OpenAIGenerator:
		return "*generator.OpenAIGenerator"
	case *MockGenerator:
		return "*generator.MockGenerator"
	}
	return "unknown"
}

func TestNewMockMode(t *testing.T) {
	cfg := appconfig.Default()
	cfg.Mock = true
	cfg.MockDelayMs = 5

	g, err := New(KindAsync, &cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	mock, ok := g.(*MockGenerator)
	if !ok {
		t.Fatalf("expected *MockGenerator, got %T", g)
	}
	if mock.Name() != "async-mock" {
		t.Errorf("Name: got %q", mock.Name())
	}
	if mock.Delay != 5*time.Millisecond {
		t.Errorf("Delay: got %s", mock.Delay)
	}
	if mock.Serialize {
		t.Error("async mock should not serialize")
	}

	blocking, err := New(KindBlocking, &cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !blocking.(*MockGenerator).Serialize {
		t.Error("blocking mock should serialize")
	}
}

func TestNewErrors(t *testing.T) {
	if _, err := New(KindBlocking, nil); err == nil {
		t.Error("expected error for nil config")
	}

	cfg := appconfig.Default()
	if _, err := New("carrier-pigeon", &cfg); err == nil || !strings.Contains(err.Error(), "unsupported generator") {
		t.Errorf("expected unsupported generator error, got %v", err)
	}

	cfg.Mock = true
	if _, err := New("carrier-pigeon", &cfg); err == nil {
		t.Error("expected error for unknown kind in mock mode")
	}
}

func TestMockGenerator(t *testing.T) {
	m := &MockGenerator{}
	got, err := m.Generate(context.Background(), EmailRequest{EmailContent: "hi", Tone: "warm"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.HasSuffix(got, " (warm)") {
		t.Errorf("reply: %q", got)
	}

	m.Reply = "fixed"
	if got, _ := m.Generate(context.Background(), EmailRequest{EmailContent: "hi"}); got != "fixed" {
		t.Errorf("reply: got %q", got)
	}
	if m.Calls() != 2 {
		t.Errorf("Calls: got %d, want 2", m.Calls())
	}
}

func TestMockGeneratorFailure(t *testing.T) {
	boom := errors.New("boom")
	m := &MockGenerator{Label: "flaky", Err: boom}

	_, err := m.Generate(context.Background(), EmailRequest{EmailContent: "hi"})
	var callErr *RemoteCallError
	if !errors.As(err, &callErr) || callErr.Generator != "flaky" {
		t.Fatalf("expected RemoteCallError from flaky, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Error("expected wrapped cause")
	}
}

func TestMockGeneratorHonoursContext(t *testing.T) {
	m := &MockGenerator{Delay: time.Minute}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Generate(ctx, EmailRequest{EmailContent: "hi"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMockGeneratorSerialize(t *testing.T) {
	m := &MockGenerator{Delay: 20 * time.Millisecond, Serialize: true}

	var wg sync.WaitGroup
	start := time.Now()
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Generate(context.Background(), EmailRequest{EmailContent: "hi"})
		}()
	}
	wg.Wait()

	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Errorf("serialized calls finished in %s, want >= 60ms", elapsed)
	}
}
