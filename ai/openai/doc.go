// Package openai implements ai.Embedder against OpenAI or OpenAI-compatible
// services (such as Ollama, LocalAI, or vLLM) through langchaingo.
//
// # Usage
//
//	cfg := ai.NewConfig(
//	    ai.WithEmbeddingHost("http://localhost:11434"), // /v1 added automatically
//	    ai.WithRequestsPerMinute(600),
//	)
//	embedder, err := openai.NewEmbedder(cfg)
package openai
