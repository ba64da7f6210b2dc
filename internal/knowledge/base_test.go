package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/m3rciful/consultbot/core/dialog"
)

func TestNewFillsDefaults(t *testing.T) {
	b := New(Config{APIKey: "k"})
	assert.Equal(t, "gpt-4o-mini", b.cfg.ChatModel)
	assert.Equal(t, "text-embedding-3-large", b.cfg.EmbeddingModel)
	assert.Equal(t, 5, b.cfg.TopK)
	assert.InDelta(t, 0.1, b.cfg.Temperature, 1e-9)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1, cosine([]float64{1, 0}, []float64{2, 0}), 1e-9)
	assert.InDelta(t, 0, cosine([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.InDelta(t, -1, cosine([]float64{1, 0}, []float64{-3, 0}), 1e-9)
	assert.Zero(t, cosine([]float64{1}, []float64{1, 2}), "dimension mismatch")
	assert.Zero(t, cosine([]float64{0, 0}, []float64{1, 2}), "zero vector")
}

func TestTopChunksRanksBestFirst(t *testing.T) {
	b := &Base{
		cfg: Config{TopK: 2},
		chunks: []chunk{
			{text: "orthogonal", vec: []float64{0, 1}},
			{text: "exact", vec: []float64{1, 0}},
			{text: "close", vec: []float64{1, 0.2}},
		},
	}
	got := b.topChunks([]float64{1, 0})
	assert.Equal(t, []string{"exact", "close"}, got)
}

func TestTopChunksHonoursSmallCorpus(t *testing.T) {
	b := &Base{
		cfg:    Config{TopK: 5},
		chunks: []chunk{{text: "only", vec: []float64{1}}},
	}
	assert.Equal(t, []string{"only"}, b.topChunks([]float64{1}))
}

func TestFormatHistory(t *testing.T) {
	assert.Empty(t, FormatHistory(nil))

	got := FormatHistory([]dialog.Exchange{
		{Query: "первый", Answer: "ответ один"},
		{Query: "второй", Answer: "ответ два"},
	})
	assert.Equal(t,
		"Вопрос клиента: первый, Ответ нейроконсультанта: ответ один\n"+
			"Вопрос клиента: второй, Ответ нейроконсультанта: ответ два",
		got)
}
