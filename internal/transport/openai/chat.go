package openai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Chat prompts are Spanish to match the corpus embedding language.
const (
	optimizeSystem = "Eres un experto en búsqueda de películas que expande queries para mejor búsqueda semántica."

	optimizeTemplate = `Eres un experto en búsqueda de películas. Expande la siguiente consulta con términos y conceptos relacionados para una mejor búsqueda semántica.

Consulta: %q

Tareas:
1. Identifica el género, temas y elementos clave
2. Agrega sinónimos y conceptos relacionados en español
3. Crea una descripción enriquecida (2-3 oraciones)

Responde SOLO con la consulta expandida.`

	narrativeSystem = "Eres un experto crítico de cine que da recomendaciones personalizadas y perspicaces."

	narrativeTemplate = `Actúa como un experto crítico de cine y recomendador de películas.

El usuario buscó: %q

Basándote en estas películas encontradas mediante búsqueda semántica:

%s

Por favor:
1. Analiza brevemente por qué estas películas coinciden con la búsqueda del usuario
2. Resume los temas o géneros comunes
3. Da una recomendación personalizada sobre cuál ver primero y por qué

Sé conciso pero informativo (máximo 150 palabras).`
)

// NarrativeMovie is one ranked hit passed as narrative context.
type NarrativeMovie struct {
	Title      string
	Overview   string
	Genres     string
	MatchScore float64 // percentage
}

// Chat wraps the chat-completion endpoint for query optimization and result
// narration.
type Chat struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// ChatConfig holds the chat provider settings.
type ChatConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// NewChat creates an OpenAI-compatible chat provider.
func NewChat(cfg *ChatConfig) *Chat {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Chat{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: cfg.Logger,
	}
}

// OptimizeQuery expands a user query with related terms for better semantic
// recall. Errors are returned as-is; the caller decides whether to fall back
// to the original query.
func (c *Chat) OptimizeQuery(ctx context.Context, query string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: optimizeSystem},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(optimizeTemplate, query)},
		},
		Temperature: 0.4,
		MaxTokens:   200,
		TopP:        0.9,
	})
	if err != nil {
		return "", fmt.Errorf("optimize query: %w", err)
	}

	content := firstContent(resp)
	content = strings.Trim(strings.TrimSpace(content), `"'`)
	if content == "" {
		return "", fmt.Errorf("optimize query: empty completion")
	}
	return content, nil
}

// Narrate generates a short recommendation text for the ranked results.
func (c *Chat) Narrate(ctx context.Context, query string, movies []NarrativeMovie) (string, error) {
	blocks := make([]string, 0, len(movies))
	for i, m := range movies {
		blocks = append(blocks, fmt.Sprintf(
			"Película %d: %s\nSinopsis: %s\nGéneros: %s\nSimilitud: %.1f%%",
			i+1, m.Title, m.Overview, orNA(m.Genres), m.MatchScore))
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: narrativeSystem},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(narrativeTemplate, query, strings.Join(blocks, "\n\n"))},
		},
		Temperature: 0.7,
		MaxTokens:   2048,
		TopP:        0.9,
	})
	if err != nil {
		return "", fmt.Errorf("narrate results: %w", err)
	}

	content := strings.TrimSpace(firstContent(resp))
	if content == "" {
		return "", fmt.Errorf("narrate results: empty completion")
	}
	return content, nil
}

func firstContent(resp openai.ChatCompletionResponse) string {
	if len(resp.Choices) == 0 {
		return ""
	}
	return resp.Choices[0].Message.Content
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
