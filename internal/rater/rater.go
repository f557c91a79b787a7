package rater

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	toon "github.com/toon-format/toon-go"

	"github.com/collabscope/collabscope/pkg/models"
)

const systemPrompt = `You are an expert reviewer of student programming work.
Rate the engineering effort behind one version-control change.
Respond with a single JSON object and nothing else: no markdown, no explanation.`

const responseShape = `{"effortScore": <1-10>, "complexity": <1-10>, "novelty": <1-10>, "type": "FEATURE|BUG_FIX|TEST|REFACTOR|TRIVIAL", "confidence": <0.0-1.0>, "reasoning": "<one short sentence>"}`

// markdown fences some models wrap around JSON despite instructions
var fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// chunkPayload is the chunk context embedded in the prompt, serialized as
// TOON to keep the token cost down.
type chunkPayload struct {
	Message      string `toon:"message"`
	Files        string `toon:"files"`
	LinesAdded   int    `toon:"lines_added"`
	LinesDeleted int    `toon:"lines_deleted"`
	Diff         string `toon:"diff"`
}

// ratingResponse mirrors the JSON object the model is asked for.
type ratingResponse struct {
	EffortScore float64 `json:"effortScore"`
	Complexity  float64 `json:"complexity"`
	Novelty     float64 `json:"novelty"`
	Type        string  `json:"type"`
	Confidence  float64 `json:"confidence"`
	Reasoning   string  `json:"reasoning"`
}

// Completer is the model call the rater depends on. Satisfied by *Client;
// tests substitute fakes.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, *Usage, error)
	Model() string
}

// Cache stores ratings keyed by chunk content so unchanged history skips
// model calls on re-runs.
type Cache interface {
	Get(key string) (models.EffortRating, bool)
	Put(key string, rating models.EffortRating)
}

// EffortRater rates chunks via the LLM judge. Ratings for distinct chunks
// are independent; the rater itself is safe for concurrent use.
type EffortRater struct {
	client  Completer
	enabled bool
	cache   Cache
}

// RaterOption is a functional option for configuring EffortRater.
type RaterOption func(*EffortRater)

// WithCache attaches a rating cache.
func WithCache(cache Cache) RaterOption {
	return func(r *EffortRater) {
		r.cache = cache
	}
}

// WithEnabled switches the rater on or off. A disabled rater never calls
// the model.
func WithEnabled(enabled bool) RaterOption {
	return func(r *EffortRater) {
		r.enabled = enabled
	}
}

// NewEffortRater creates a rater over the given model client.
func NewEffortRater(client Completer, opts ...RaterOption) *EffortRater {
	r := &EffortRater{client: client, enabled: true}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rate judges one chunk. Transport failures and timeouts come back as
// error ratings rather than errors: one bad call never fails a team.
func (r *EffortRater) Rate(ctx context.Context, chunk models.Chunk) (models.EffortRating, models.TokenUsage) {
	if !r.enabled {
		return models.DisabledRating(), models.UnavailableUsage(r.model())
	}

	cacheKey := ""
	if r.cache != nil {
		cacheKey = ratingCacheKey(chunk, r.model())
		if rating, ok := r.cache.Get(cacheKey); ok {
			return rating, models.UnavailableUsage(r.model())
		}
	}

	prompt, err := buildPrompt(chunk)
	if err != nil {
		return models.TrivialRating("prompt construction failed"), models.UnavailableUsage(r.model())
	}

	content, usage, err := r.client.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			slog.Warn("llm call timed out", "sha", chunk.SHA, "chunk", chunk.ChunkIndex)
			return models.ErrorRating("llm call timed out"), models.UnavailableUsage(r.model())
		}
		slog.Warn("llm call failed", "sha", chunk.SHA, "error", err)
		return models.ErrorRating(err.Error()), models.UnavailableUsage(r.model())
	}

	rating, ok := r.parse(content)
	if !ok {
		return models.TrivialRating("Truncated AI response"), models.UnavailableUsage(r.model())
	}

	if rating.Confidence < 0.7 {
		slog.Warn("low-confidence rating",
			"sha", chunk.SHA, "confidence", rating.Confidence, "label", rating.Label)
	}

	if r.cache != nil {
		r.cache.Put(cacheKey, rating)
	}

	tokenUsage := models.UnavailableUsage(r.model())
	if usage != nil {
		tokenUsage = models.TokenUsage{
			Model:            r.model(),
			PromptTokens:     usage.PromptTokens,
			CompletionTokens: usage.CompletionTokens,
			TotalTokens:      usage.TotalTokens,
			UsageAvailable:   true,
		}
	}
	return rating, tokenUsage
}

func (r *EffortRater) model() string {
	return r.client.Model()
}

// buildPrompt embeds the chunk context as TOON plus the answer contract.
func buildPrompt(chunk models.Chunk) (string, error) {
	payload := chunkPayload{
		Message:      chunk.Message,
		Files:        strings.Join(chunk.FilePaths(), ", "),
		LinesAdded:   chunk.LinesAdded,
		LinesDeleted: chunk.LinesDeleted,
		Diff:         chunk.TruncatedDiff(),
	}
	encoded, err := toon.Marshal(payload, toon.WithIndent(2))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Rate the following change:\n\n")
	b.Write(encoded)
	b.WriteString("\n\nAnswer with exactly this JSON shape:\n")
	b.WriteString(responseShape)
	return b.String(), nil
}

// parse extracts and validates the rating JSON from a model response.
func (r *EffortRater) parse(content string) (models.EffortRating, bool) {
	raw := extractJSON(content)
	if raw == "" {
		return models.EffortRating{}, false
	}

	if err := validateRatingJSON([]byte(raw)); err != nil {
		slog.Debug("rating response failed schema validation", "error", err)
		return models.EffortRating{}, false
	}

	var resp ratingResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return models.EffortRating{}, false
	}

	label := models.ChangeLabel(strings.ToUpper(strings.TrimSpace(resp.Type)))
	if !models.ValidLabel(label) {
		label = models.LabelTrivial
	}

	return models.EffortRating{
		EffortScore: clampRange(resp.EffortScore, 1, 10),
		Complexity:  clampRange(resp.Complexity, 1, 10),
		Novelty:     clampRange(resp.Novelty, 1, 10),
		Label:       label,
		Confidence:  clampRange(resp.Confidence, 0, 1),
		Reasoning:   resp.Reasoning,
	}, true
}

// extractJSON strips markdown fences and isolates the outermost object.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	if m := fenceRe.FindStringSubmatch(content); m != nil {
		content = strings.TrimSpace(m[1])
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return ""
	}
	return content[start : end+1]
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ratingCacheKey is content-based: the same diff under the same model maps
// to the same rating, independent of how the run was resumed.
func ratingCacheKey(chunk models.Chunk, model string) string {
	return fmt.Sprintf("%s|%s|%s", model, chunk.Message, chunk.DiffText)
}
