package adapter

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	kgerrors "kg-extractor/backend/pkg/errors"
	"kg-extractor/backend/pkg/logger"
)

// tripletPrompt makes a chat model emit the REBEL linearization the parser reads.
const tripletPrompt = `You are a relation extraction engine. Read the text and emit every (head, relation, tail) fact it states.

Output format, on a single line, nothing else:
<triplet> HEAD <subj> TAIL <obj> RELATION
Several facts about the same head may share one <triplet>:
<triplet> HEAD <subj> TAIL1 <obj> RELATION1 <subj> TAIL2 <obj> RELATION2

Rules:
- Use Wikidata-style relation labels (country, inception, instance of, part of, located in the administrative territorial entity, ...).
- Copy entity names exactly as written in the text.
- If there are no facts, output nothing.

Example:
Text: Punta Cana is a resort town in the municipality of Higüey, in La Altagracia Province, the eastern most province of the Dominican Republic.
Output: <triplet> Punta Cana <subj> Higüey <obj> located in the administrative territorial entity <subj> La Altagracia Province <obj> located in the administrative territorial entity <subj> Dominican Republic <obj> country <triplet> Higüey <subj> La Altagracia Province <obj> located in the administrative territorial entity <subj> Dominican Republic <obj> country`

// corefPrompt rewrites text with pronouns replaced by their antecedents.
const corefPrompt = `Rewrite the following text by resolving the coreferences.

Replace each pronoun or referring expression in the text with the corresponding key entity to ensure clarity and coherence. Return only the rewritten text.`

// zeroTemperature is sent instead of 0, which the client drops as an empty field.
const zeroTemperature = math.SmallestNonzeroFloat32

const maxRetries = 3

// LLMAdapter handles communication with the LLM via LiteLLM
type LLMAdapter struct {
	client         *openai.Client
	model          string
	corefModel     string
	embeddingModel string
	logger         *zap.Logger
}

// NewLLMAdapter creates a new LLM adapter
func NewLLMAdapter(baseURL, apiKey, modelID, corefModelID string) *LLMAdapter {
	// For LiteLLM, we can use a dummy API key if not provided
	if apiKey == "" {
		apiKey = "dummy-key"
	}

	config := openai.DefaultConfig(apiKey)
	config.BaseURL = strings.TrimRight(baseURL, "/") + "/v1"

	if corefModelID == "" {
		corefModelID = modelID
	}

	return &LLMAdapter{
		client:         openai.NewClientWithConfig(config),
		model:          modelID,
		corefModel:     corefModelID,
		embeddingModel: string(openai.SmallEmbedding3),
		logger:         logger.Get(),
	}
}

// WithEmbeddingModel sets the model used by Embed
func (a *LLMAdapter) WithEmbeddingModel(model string) *LLMAdapter {
	if model != "" {
		a.embeddingModel = model
	}
	return a
}

// GenerateTriplets returns the tagged token stream for text
func (a *LLMAdapter) GenerateTriplets(ctx context.Context, text string) (string, error) {
	out, err := a.complete(ctx, a.model, tripletPrompt, "Text: "+text)
	if err != nil {
		return "", err
	}
	// Some models echo the example's label
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(out), "Output:")), nil
}

// ResolveCoreferences rewrites text with referring expressions replaced
func (a *LLMAdapter) ResolveCoreferences(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", kgerrors.ErrEmptyText
	}
	out, err := a.complete(ctx, a.corefModel, corefPrompt, "Text: "+text)
	if err != nil {
		return "", kgerrors.NewCorefFailed(a.corefModel, err)
	}
	return strings.TrimSpace(out), nil
}

// Embed returns one embedding per input text, in input order
func (a *LLMAdapter) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(a.embeddingModel),
	})
	if err != nil {
		return nil, generationFailed(a.embeddingModel, 1, err)
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index >= 0 && d.Index < len(vectors) {
			vectors[d.Index] = d.Embedding
		}
	}
	return vectors, nil
}

// complete sends a two-message chat request with retries
func (a *LLMAdapter) complete(ctx context.Context, model, systemPrompt, userMsg string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userMsg,
			},
		},
		Temperature: zeroTemperature,
	}

	// Retry logic with linear backoff; rejected requests are not retried
	var resp openai.ChatCompletionResponse
	var err error
	attempts := 0
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * time.Second
			a.logger.Warn("Retrying LLM request",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return "", kgerrors.NewGenerationFailed(model, attempt, ctx.Err())
			case <-time.After(backoff):
			}
		}

		attempts = attempt + 1
		resp, err = a.client.CreateChatCompletion(ctx, req)
		if err == nil {
			break
		}

		a.logger.Error("LLM request failed",
			zap.Error(err),
			zap.Int("attempt", attempts),
			zap.Int("status", httpStatus(err)),
			zap.String("model", model),
		)
		if !kgerrors.IsRetryable(generationFailed(model, attempts, err)) {
			break
		}
	}

	if err != nil {
		return "", generationFailed(model, attempts, err)
	}
	if len(resp.Choices) == 0 {
		return "", kgerrors.ErrNoOutput
	}

	content := resp.Choices[0].Message.Content
	a.logger.Debug("LLM response generated",
		zap.String("model", model),
		zap.Int("chars", len(content)),
	)
	return content, nil
}

func generationFailed(model string, attempts int, err error) *kgerrors.ErrGenerationFailed {
	gerr := kgerrors.NewGenerationFailed(model, attempts, err)
	gerr.StatusCode = httpStatus(err)
	return gerr
}

// httpStatus extracts the response status from a client error, 0 when the request
// never got an answer.
func httpStatus(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
