// Package llm provides external semantic matching over language model APIs.
// It supports multiple providers including OpenRouter, OpenAI, and Gemini,
// with retry logic, rate limiting, and response caching.
package llm
