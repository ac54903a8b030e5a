package llm

//go:generate mockgen -destination=mock_llm.go -package=llm github.com/kestrelmon/kestrel/pkg/llm Client

import "context"

// Request is one completion call. The model's output is untrusted: callers
// must survive malformed replies and outright failure.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Client is the black-box language-model call: text in, text out, fallible
// and rate-limited.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}
