// internal/generator/generator.go

// Package generator turns an email and a desired tone into a prompt, sends it to a
// remote text-generation API and returns the generated reply. Several client
// strategies implement the same Generator contract so they can be benchmarked
// against each other.
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// MaxEmailContentLength bounds the email body accepted for generation.
const MaxEmailContentLength = 20000

// ErrMalformedResponse marks a reachable remote endpoint whose reply did not have the expected shape.
var ErrMalformedResponse = errors.New("malformed response")

// EmailRequest is the input of a generation. It is never mutated after construction,
// so one value may be shared by concurrent calls.
type EmailRequest struct {
	EmailContent string `json:"emailContent" validate:"required,max=20000"`
	Tone         string `json:"tone,omitempty" validate:"max=64"`
}

// Generator is implemented by every remote client strategy.
type Generator interface {
	// Name identifies the strategy in logs, metrics and benchmark results.
	Name() string
	// Generate returns the generated reply text or an error; it never folds
	// failures into the returned text.
	Generate(ctx context.Context, req EmailRequest) (string, error)
}

// RemoteCallError reports a failed call to the remote API: a transport error,
// a non-2xx status, or a response that could not be parsed.
type RemoteCallError struct {
	Generator  string
	StatusCode int
	Err        error
}

func (e *RemoteCallError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: remote call failed with status %d: %v", e.Generator, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: remote call failed: %v", e.Generator, e.Err)
}

func (e *RemoteCallError) Unwrap() error { return e.Err }

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the request before any remote call is made.
func (r EmailRequest) Validate() error {
	if strings.TrimSpace(r.EmailContent) == "" {
		return errors.New("emailContent is required")
	}
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			switch fe.Field() {
			case "EmailContent":
				return fmt.Errorf("emailContent too long: %d characters (max %d)", utf8.RuneCountInString(r.EmailContent), MaxEmailContentLength)
			case "Tone":
				return fmt.Errorf("tone too long: %d characters (max %s)", utf8.RuneCountInString(r.Tone), fe.Param())
			}
		}
		return fmt.Errorf("invalid request: %w", err)
	}
	return nil
}

// BuildPrompt renders the instruction sent to the model.
func BuildPrompt(req EmailRequest) string {
	var prompt strings.Builder
	prompt.WriteString("Generate a professional email reply for the following email content. Please don't generate a subject line ")
	if tone := strings.TrimSpace(req.Tone); tone != "" {
		prompt.WriteString("Use a ")
		prompt.WriteString(tone)
		prompt.WriteString(" tone.")
	}
	prompt.WriteString("\nOriginal email: \n")
	prompt.WriteString(req.EmailContent)
	return prompt.String()
}
