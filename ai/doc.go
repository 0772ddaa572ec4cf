// Package ai provides the embedding abstraction used to attach vectors to
// documents before upload.
//
// Documents may arrive with precomputed embeddings computed by an Embedder;
// the ingestion pipeline never recomputes a vector for a document that is
// retried, it reuses the one already attached.
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test double for unit testing without external dependencies
//
// Public constructors (openai.NewEmbedder) return the ai.Embedder interface.
// The test constructor mock.NewMockEmbedder returns the concrete type so tests
// can inject behavior and assert on call counts.
//
// # Usage Example
//
//	cfg := ai.NewConfig(ai.WithEmbeddingModel("text-embedding-3-small"))
//	embedder, err := openai.NewEmbedder(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	vectors, err := embedder.EmbedTexts(ctx, []string{"D'oh!", "Woo hoo!"})
package ai
