// Package llm provides the generative model abstraction used by script,
// narration, and repair prompts, plus an OpenRouter chat client that
// implements it.
//
// # Entry Points
//
// Generator: the interface every backend satisfies.
// NewClient: construct an OpenRouter client from Config.
// Client.GenerateText: send a prompt with a ResponseHint, receive text.
// Client.HealthCheck: verify API key and model availability.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, network timeouts, and empty
// replies with exponential backoff (base 1s, max 10s, up to 4 attempts by
// default). Retry-After headers are honoured. Context cancellation aborts
// retries immediately.
package llm
