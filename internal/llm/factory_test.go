package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/ppiankov/xpnc/internal/model"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		provider string
		apiKey   string
		wantName string
		wantErr  error
	}{
		{"xai", "k", "xai", nil},
		{"grok", "k", "xai", nil},
		{"openai", "k", "openai", nil},
		{"claude", "k", "anthropic", nil},
		{"ollama", "", "ollama", nil},
		{"gemini", "k", "gemini", nil},
		{"xai", "", "", ErrMissingCredentials},
		{"anthropic", "", "", ErrMissingCredentials},
		{"gemini", "", "", ErrMissingCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.provider+"/"+tt.apiKey, func(t *testing.T) {
			p, err := NewProvider(Config{Provider: tt.provider, APIKey: tt.apiKey})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Name() != tt.wantName {
				t.Errorf("expected %s, got %s", tt.wantName, p.Name())
			}
		})
	}
}

func TestNewProvider_DisabledAndUnknown(t *testing.T) {
	p, err := NewProvider(Config{Provider: ""})
	if err != nil || p != nil {
		t.Errorf("expected disabled provider, got %v, %v", p, err)
	}

	if _, err := NewProvider(Config{Provider: "bard"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestAPIKeyEnv(t *testing.T) {
	if got := APIKeyEnv("xai"); got != "XAI_API_KEY" {
		t.Errorf("xai: got %s", got)
	}
	if got := APIKeyEnv("ollama"); got != "" {
		t.Errorf("ollama should need no key, got %s", got)
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestClassify(t *testing.T) {
	expired, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	<-expired.Done()

	tests := []struct {
		name string
		ctx  context.Context
		err  error
		want model.FailureKind
	}{
		{"nil", context.Background(), nil, ""},
		{"missing key", context.Background(), fmt.Errorf("xai: %w", ErrMissingCredentials), model.FailureMissingCredentials},
		{"deadline", context.Background(), &RequestError{Provider: "xai", Err: context.DeadlineExceeded}, model.FailureTimeout},
		{"expired ctx", expired, errors.New("connection reset"), model.FailureTimeout},
		{"net timeout", context.Background(), &RequestError{Provider: "xai", Err: timeoutErr{}}, model.FailureTimeout},
		{"status", context.Background(), &RequestError{Provider: "xai", StatusCode: 503, Message: "unavailable"}, model.FailureRequestFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.ctx, tt.err); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}
