package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"langlearn_backend/internal/config"
	"langlearn_backend/internal/model"
	"langlearn_backend/internal/util"
)

// AIScore is the scoring provider's verdict on one submission. Score is
// a fraction of full points in [0,1]; Confidence is the provider's own
// estimate of how much the verdict can be trusted.
type AIScore struct {
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	Feedback   string  `json:"feedback"`
}

// AIScorer is the external AI collaborator. Implementations must respect
// the context deadline; the engine never retries.
type AIScorer interface {
	ScoreAnswer(ctx context.Context, q model.Question, submitted string) (*AIScore, error)
}

type AIService struct {
	config config.AIConfig
	client *http.Client
}

func NewAIService(cfg config.AIConfig) *AIService {
	return &AIService{
		config: cfg,
		client: &http.Client{},
	}
}

type AIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompletionRequest struct {
	Model    string          `json:"model"`
	Messages []AIChatMessage `json:"messages"`
}

type ChatCompletionResponse struct {
	Choices []struct {
		Message AIChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

const aiGraderSystemPrompt = "You are a strict grader for a language-learning platform. " +
	"Grade the student's answer against the question. " +
	"Reply with a single JSON object and nothing else: " +
	`{"score": <fraction of full credit, 0.0-1.0>, "confidence": <0.0-1.0>, "feedback": "<one or two sentences for the student>"}`

// ScoreAnswer asks the provider for a candidate grade. The call runs
// under the configured timeout; the caller decides what a timeout or
// error means (in practice: fail over to human review).
func (s *AIService) ScoreAnswer(ctx context.Context, q model.Question, submitted string) (*AIScore, error) {
	timeout := time.Duration(s.config.TimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	userPrompt := fmt.Sprintf("Question (%s, %s, level %s):\n%s\n\nStudent answer:\n%s",
		q.Type, q.Skill, q.Level, q.Prompt, submitted)

	reqBody := ChatCompletionRequest{
		Model: s.config.Model,
		Messages: []AIChatMessage{
			{Role: "system", Content: aiGraderSystemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.config.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", util.ErrAITimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", util.ErrAIUnavailable, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", util.ErrAIUnavailable, resp.StatusCode, string(body))
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrAIUnavailable, err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("%w: %s", util.ErrAIUnavailable, result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", util.ErrAIUnavailable)
	}

	return parseAIScore(result.Choices[0].Message.Content)
}

// parseAIScore extracts the JSON verdict from the model's reply. Models
// sometimes wrap JSON in markdown fences; tolerate that, nothing more.
func parseAIScore(content string) (*AIScore, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var score AIScore
	if err := json.Unmarshal([]byte(content), &score); err != nil {
		return nil, fmt.Errorf("%w: unparseable verdict: %v", util.ErrAIUnavailable, err)
	}
	if score.Score < 0 {
		score.Score = 0
	}
	if score.Score > 1 {
		score.Score = 1
	}
	return &score, nil
}
