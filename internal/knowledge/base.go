// Package knowledge answers free-form questions against the company
// knowledge base: the corpus is embedded once at startup, queries are ranked
// by cosine similarity, and the top chunks are handed to a chat completion
// together with the recent dialogue history.
package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/m3rciful/consultbot/core/dialog"
	"github.com/m3rciful/consultbot/core/logger"
	"github.com/m3rciful/consultbot/internal/texts"
)

// Config controls the completion and embedding calls.
type Config struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	EmbeddingModel string
	Temperature    float64
	TopK           int
}

type chunk struct {
	text string
	vec  []float64
}

// Base is the retrieval + completion collaborator of the chat mode.
type Base struct {
	client openai.Client
	cfg    Config
	chunks []chunk
}

// New builds a Base with defaults filled in for zero fields.
func New(cfg Config) *Base {
	if cfg.ChatModel == "" {
		cfg.ChatModel = "gpt-4o-mini"
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-3-large"
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.1
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Base{
		client: openai.NewClient(opts...),
		cfg:    cfg,
	}
}

// LoadCorpusDir embeds every regular file of dir as one knowledge chunk.
// Called once at startup before the bot accepts updates.
func (b *Base) LoadCorpusDir(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("knowledge: read corpus dir: %w", err)
	}
	var inputs []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return fmt.Errorf("knowledge: read corpus file %s: %w", e.Name(), err)
		}
		text := strings.TrimSpace(string(data))
		if text != "" {
			inputs = append(inputs, text)
		}
	}
	if len(inputs) == 0 {
		return fmt.Errorf("knowledge: corpus dir %s has no usable files", dir)
	}

	start := time.Now()
	vecs, err := b.embed(ctx, inputs)
	if err != nil {
		return err
	}
	b.chunks = b.chunks[:0]
	for i, text := range inputs {
		b.chunks = append(b.chunks, chunk{text: text, vec: vecs[i]})
	}
	logger.Info(ctx, "knowledge", "knowledge.corpus",
		slog.String("status", "ok"),
		slog.Int("chunks", len(b.chunks)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return nil
}

func (b *Base) embed(ctx context.Context, inputs []string) ([][]float64, error) {
	resp, err := b.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(b.cfg.EmbeddingModel),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: inputs},
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge: embeddings: %w", err)
	}
	if len(resp.Data) != len(inputs) {
		return nil, fmt.Errorf("knowledge: embeddings: got %d vectors for %d inputs", len(resp.Data), len(inputs))
	}
	out := make([][]float64, len(resp.Data))
	for i, d := range resp.Data {
		out[i] = d.Embedding
	}
	return out, nil
}

// Answer produces a grounded reply to the query. The history is the ordered
// window of recent exchanges, oldest first; it is rendered into the prompt
// the same way the production consultant formats it.
func (b *Base) Answer(ctx context.Context, query string, history []dialog.Exchange) (string, error) {
	start := time.Now()

	qvecs, err := b.embed(ctx, []string{query})
	if err != nil {
		return "", err
	}
	docs := b.topChunks(qvecs[0])

	user := fmt.Sprintf(texts.UserPrompt, strings.Join(docs, "\n"+strings.Repeat("-", 50)+"\n"), FormatHistory(history), query)
	resp, err := b.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(b.cfg.ChatModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(texts.SystemPrompt),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(b.cfg.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("knowledge: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("knowledge: completion returned no choices")
	}

	logger.Debug(ctx, "knowledge", "knowledge.answer",
		slog.String("status", "ok"),
		slog.Int("chunks", len(docs)),
		slog.Int("history_len", len(history)),
		slog.Int64("duration_ms", logger.RoundMS(time.Since(start)).Milliseconds()),
	)
	return resp.Choices[0].Message.Content, nil
}

// topChunks returns the texts of the TopK most similar chunks, best first.
func (b *Base) topChunks(qvec []float64) []string {
	type scored struct {
		idx   int
		score float64
	}
	ranked := make([]scored, 0, len(b.chunks))
	for i, c := range b.chunks {
		ranked = append(ranked, scored{idx: i, score: cosine(qvec, c.vec)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	k := b.cfg.TopK
	if k > len(ranked) {
		k = len(ranked)
	}
	out := make([]string, 0, k)
	for _, r := range ranked[:k] {
		out = append(out, b.chunks[r.idx].text)
	}
	return out
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// FormatHistory renders exchanges oldest-first as prompt lines.
func FormatHistory(history []dialog.Exchange) string {
	if len(history) == 0 {
		return ""
	}
	lines := make([]string, 0, len(history))
	for _, ex := range history {
		lines = append(lines, fmt.Sprintf(texts.HistoryPair, ex.Query, ex.Answer))
	}
	return strings.Join(lines, "\n")
}
