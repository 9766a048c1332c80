// internal/recognition/client.go
package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultModel is used when neither the player config nor the environment
// names one.
const DefaultModel = "ernie-4.5-vl-28b-a3b"

// DefaultTimeout bounds one recognition round trip. Turn progress must never
// hang on the bridge, so this is deliberately short.
const DefaultTimeout = 30 * time.Second

const defaultPrompt = "你是一位能够理解绘画的中文助手，请根据提供的图像推测其所表达的中文词语或短语，并生成答案。"

const formatInstructions = "请仅输出一个 JSON 代码块，严格按照如下格式返回：\n" +
	"```json\n" +
	"{\n" +
	"  \"best_guess\": \"最可能的中文词语或短语\",\n" +
	"  \"alternatives\": [\"备选答案1\", \"备选答案2\"],\n" +
	"  \"reason\": \"简要的中文解释\"\n" +
	"}\n" +
	"```\n" +
	"其中 alternatives 按可能性从高到低排列，如无可填空数组；不允许输出除上述 JSON 代码块之外的任何文字。"

var jsonBlockPattern = regexp.MustCompile("(?is)```json\\s*(.*?)\\s*```")

// Client calls an OpenAI-compatible vision endpoint. A player-supplied
// capability descriptor overrides the server-wide endpoint; with neither
// configured Recognize degrades to an unconfigured non-result instead of an
// error.
type Client struct {
	HTTP    *http.Client
	BaseURL string
	APIKey  string
	Model   string
	Logger  *logrus.Logger
}

// NewClientFromEnv builds a client from RECOGNIZER_URL, RECOGNIZER_KEY,
// RECOGNIZER_MODEL and RECOGNIZER_TIMEOUT.
func NewClientFromEnv(logger *logrus.Logger) *Client {
	timeout := DefaultTimeout
	if raw := os.Getenv("RECOGNIZER_TIMEOUT"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			timeout = d
		}
	}
	return &Client{
		HTTP:    &http.Client{Timeout: timeout},
		BaseURL: os.Getenv("RECOGNIZER_URL"),
		APIKey:  os.Getenv("RECOGNIZER_KEY"),
		Model:   os.Getenv("RECOGNIZER_MODEL"),
		Logger:  logger,
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []chatContent `json:"content"`
}

type chatContent struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Recognize sends the drawing plus instructions to the vision endpoint and
// parses the structured guess out of the reply.
func (c *Client) Recognize(ctx context.Context, req Request) (Result, error) {
	url := req.Config["url"]
	key := req.Config["key"]
	provider := "custom"
	if url == "" {
		url = c.BaseURL
		key = c.APIKey
		provider = "server"
	}
	if url == "" {
		return Result{Reason: "未配置识别服务", Provider: "none"}, nil
	}

	model := req.Config["model"]
	if model == "" {
		model = c.Model
	}
	if model == "" {
		model = DefaultModel
	}

	prompt := buildInstruction(req.Clue, req.Config["prompt"])
	body, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []chatContent{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &chatImageURL{URL: req.Image, Detail: "high"}},
			},
		}},
	})
	if err != nil {
		return Result{}, fmt.Errorf("marshal recognition request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(url, "/")+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build recognition request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if key != "" {
		httpReq.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("recognition call failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("read recognition response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("recognition endpoint returned %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Result{}, fmt.Errorf("decode recognition response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return Result{}, fmt.Errorf("recognition endpoint returned no choices")
	}

	result := extractGuesses(parsed.Choices[0].Message.Content)
	result.Provider = provider
	if c.Logger != nil {
		c.Logger.WithFields(logrus.Fields{
			"provider": provider,
			"model":    model,
			"guess":    result.BestGuess,
		}).Debug("recognition completed")
	}
	return result, nil
}

func buildInstruction(clue, customPrompt string) string {
	sections := []string{defaultPrompt}
	if s := strings.TrimSpace(customPrompt); s != "" {
		sections = append(sections, s)
	}
	if clue != "" {
		sections = append(sections, "猜词的参考线索："+clue)
	}
	sections = append(sections, formatInstructions)
	return strings.Join(sections, "\n\n")
}

type guessPayload struct {
	BestGuess    string      `json:"best_guess"`
	Guess        string      `json:"guess"`
	Answer       string      `json:"answer"`
	Alternatives []string    `json:"alternatives"`
	Candidates   []string    `json:"candidates"`
	Reason       interface{} `json:"reason"`
}

// extractGuesses pulls the structured guess out of model output: a fenced
// ```json block if present, the raw content as JSON otherwise, and finally the
// plain text split into candidate segments as a last resort.
func extractGuesses(content string) Result {
	content = strings.TrimSpace(content)
	if idx := strings.LastIndex(content, "</think>"); idx != -1 {
		content = strings.TrimSpace(content[idx+len("</think>"):])
	}

	candidates := []string{}
	for _, m := range jsonBlockPattern.FindAllStringSubmatch(content, -1) {
		candidates = append(candidates, m[1])
	}
	candidates = append(candidates, content)

	for _, candidate := range candidates {
		var payload guessPayload
		if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
			continue
		}
		best := payload.BestGuess
		if best == "" {
			best = payload.Guess
		}
		if best == "" {
			best = payload.Answer
		}
		alts := payload.Alternatives
		if len(alts) == 0 {
			alts = payload.Candidates
		}
		if best == "" && len(alts) > 0 {
			best, alts = alts[0], alts[1:]
		}
		if best == "" {
			continue
		}
		reason := ""
		if payload.Reason != nil {
			reason = fmt.Sprintf("%v", payload.Reason)
		}
		return Result{Success: true, BestGuess: best, Alternatives: dedupe(best, alts), Reason: reason}
	}

	// No JSON anywhere: treat the text itself as the guess.
	segments := splitCandidates(content)
	if len(segments) == 0 {
		return Result{Reason: "模型未返回可用答案"}
	}
	return Result{Success: true, BestGuess: segments[0], Alternatives: dedupe(segments[0], segments[1:])}
}

// splitCandidates breaks free-form model text into short candidate words,
// tolerating Chinese punctuation.
func splitCandidates(text string) []string {
	replacer := strings.NewReplacer("\r", "\n", "，", ",", "。", "\n")
	cleaned := replacer.Replace(text)
	var out []string
	for _, line := range strings.Split(cleaned, "\n") {
		for _, part := range strings.Split(line, ",") {
			candidate := strings.Trim(part, " \t:-。.,;；")
			if candidate != "" {
				out = append(out, candidate)
			}
		}
	}
	return out
}

func dedupe(best string, alts []string) []string {
	seen := map[string]bool{strings.ToLower(best): true}
	out := make([]string, 0, len(alts))
	for _, alt := range alts {
		alt = strings.TrimSpace(alt)
		if alt == "" || seen[strings.ToLower(alt)] {
			continue
		}
		seen[strings.ToLower(alt)] = true
		out = append(out, alt)
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
