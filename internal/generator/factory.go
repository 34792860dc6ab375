package generator

import (
	"fmt"
	"strings"

	"github.com/mwiater/emailwriter/internal/appconfig"
	"github.com/mwiater/emailwriter/internal/logging"
)

// Strategy names accepted by New.
const (
	KindBlocking = "blocking"
	KindAsync    = "async"
	KindOpenAI   = "openai"
	KindMock     = "mock"
)

// Kinds lists the selectable strategies.
func Kinds() []string {
	return []string{KindBlocking, KindAsync, KindOpenAI, KindMock}
}

// New selects and configures a generator strategy from the application
// configuration. With cfg.Mock set every kind resolves to a MockGenerator
// labelled after the requested kind.
func New(kind string, cfg *appconfig.Config) (Generator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config provided to generator factory")
	}

	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" {
		kind = KindBlocking
	}

	if cfg.Mock || kind == KindMock {
		switch kind {
		case KindBlocking, KindAsync, KindOpenAI, KindMock:
		default:
			return nil, fmt.Errorf("unsupported generator %q (want one of %s)", kind, strings.Join(Kinds(), ", "))
		}
		label := kind
		if kind != KindMock {
			label = kind + "-mock"
		}
		logging.LogDebug("generator %s: mock mode (delay %s)", label, cfg.MockDelay())
		return &MockGenerator{
			Label:     label,
			Delay:     cfg.MockDelay(),
			Serialize: kind == KindBlocking,
		}, nil
	}

	apiKey := cfg.APIKey()
	if apiKey == "" {
		logging.LogEvent("generator %s: no API key configured (set gemini.apiKey or AI_API_KEY)", kind)
	}

	switch kind {
	case KindBlocking:
		return NewBlocking(cfg.Gemini.APIURL, apiKey, cfg.Gemini.Model, cfg.RequestTimeout(), nil), nil
	case KindAsync:
		return NewAsync(cfg.Gemini.APIURL, apiKey, cfg.Gemini.Model, cfg.RequestTimeout(), nil), nil
	case KindOpenAI:
		baseURL := cfg.Gemini.OpenAIBaseURL
		if baseURL == "" {
			baseURL = appconfig.DefaultOpenAIBaseURL
		}
		return NewOpenAI(baseURL, apiKey, cfg.Gemini.Model, cfg.RequestTimeout()), nil
	default:
		return nil, fmt.Errorf("unsupported generator %q (want one of %s)", kind, strings.Join(Kinds(), ", "))
	}
}
