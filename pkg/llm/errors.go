package llm

import "errors"

var (
	errRateLimited = errors.New("completion rate limit")
	errCompletion  = errors.New("completion request failed")
	errNoChoices   = errors.New("completion response contained no choices")
)
