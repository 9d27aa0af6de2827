// Package openaichat adapts the official openai-go SDK to the llm.Generator
// interface. It backs the "openai" provider and, via Google's
// OpenAI-compatible endpoint, the "gemini" provider.
package openaichat
