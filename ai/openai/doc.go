// Package openai implements the ai service interfaces against any
// OpenAI-compatible API (OpenAI, Ollama, LocalAI, vLLM) via langchaingo.
package openai
