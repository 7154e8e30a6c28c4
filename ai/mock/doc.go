// Package mock provides a test double for ai.Embedder.
//
//	embedder := mock.NewMockEmbedder()
//	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return nil, errors.New("service down")
//	}
//
// By default vectors are deterministic unit vectors derived from the text hash.
package mock
