package openai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbedderOptionsOverrideDefaults(t *testing.T) {
	embedder := NewEmbedder("dummy-key",
		WithEmbeddingModel("custom-model"),
		WithEmbeddingDimension(42),
	)

	assert.Equal(t, "custom-model", embedder.ModelName())
	assert.Equal(t, 42, embedder.Dimension())
}

func TestStaticEmbedderReturnsZeroVectors(t *testing.T) {
	embedder := NewStaticEmbedder(8)

	embeddings, err := embedder.GenerateEmbeddings(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)

	require.Len(t, embeddings, 3)
	for _, vector := range embeddings {
		assert.Len(t, vector, 8)
		for _, v := range vector {
			assert.Zero(t, v)
		}
	}
}

func TestStaticEmbedderDefaultsDimension(t *testing.T) {
	embedder := NewStaticEmbedder(0)
	assert.Equal(t, DefaultEmbeddingDimension, embedder.Dimension())
}
