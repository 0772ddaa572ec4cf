// Package mock provides a test double for ai.Embedder.
//
// # Usage in Tests
//
//	embedder := mock.NewMockEmbedder()
//	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
//	    return nil, errors.New("service unavailable")
//	}
//	count := embedder.CallCount()
//
// By default the mock returns deterministic vectors derived from a hash of
// the text, so the same text always embeds to the same vector.
package mock
