// Package gemini talks to the Google Generative Language REST API. It covers
// the three puzzle surfaces the game needs: image generation (base and
// modified spot-the-difference pairs, anomaly scenes), structured-JSON
// verification of guesses, and structured-JSON answer listing with bounding
// boxes.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/perceptra/braingym/internal/game"
)

const (
	defaultBaseURL     = "https://generativelanguage.googleapis.com"
	defaultImageModel  = "gemini-2.5-flash-image"
	defaultVisionModel = "gemini-3-flash-preview"
)

type Client struct {
	APIKey      string
	BaseURL     string
	ImageModel  string
	VisionModel string
	http        *http.Client
}

func New(apiKey, baseURL, imageModel, visionModel string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if imageModel == "" {
		imageModel = defaultImageModel
	}
	if visionModel == "" {
		visionModel = defaultVisionModel
	}
	return &Client{
		APIKey:      apiKey,
		BaseURL:     strings.TrimRight(baseURL, "/"),
		ImageModel:  imageModel,
		VisionModel: visionModel,
		// image generation regularly takes tens of seconds
		http: &http.Client{Timeout: 90 * time.Second},
	}
}

// wire types for generateContent

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64 PNG
}

type schema struct {
	Type       string             `json:"type"`
	Properties map[string]*schema `json:"properties,omitempty"`
	Items      *schema            `json:"items,omitempty"`
	Required   []string           `json:"required,omitempty"`
}

type genConfig struct {
	ResponseMIMEType string       `json:"responseMimeType,omitempty"`
	ResponseSchema   *schema      `json:"responseSchema,omitempty"`
	ImageConfig      *imageConfig `json:"imageConfig,omitempty"`
}

type imageConfig struct {
	AspectRatio string `json:"aspectRatio"`
}

type genRequest struct {
	Contents []content  `json:"contents"`
	Config   *genConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type genResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func textPart(s string) part { return part{Text: s} }

func imagePart(b64 string) part {
	return part{InlineData: &inlineData{MIMEType: "image/png", Data: b64}}
}

func (r *genResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return strings.TrimSpace(sb.String())
}

func (r *genResponse) firstImage() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	for _, p := range r.Candidates[0].Content.Parts {
		if p.InlineData != nil && p.InlineData.Data != "" {
			return p.InlineData.Data
		}
	}
	return ""
}

func (c *Client) generate(ctx context.Context, model string, parts []part, cfg *genConfig) (*genResponse, error) {
	if c.APIKey == "" {
		return nil, errors.New("missing GEMINI_API_KEY")
	}
	body, _ := json.Marshal(genRequest{Contents: []content{{Parts: parts}}, Config: cfg})
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.BaseURL, model)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.APIKey)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("gemini status %d", resp.StatusCode)
	}
	var out genResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// stripFences removes a ```json ... ``` wrapper the model sometimes adds even
// in JSON response mode.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func decodeJSON(raw string, v any) error {
	raw = stripFences(raw)
	if raw == "" {
		return errors.New("empty model response")
	}
	return json.Unmarshal([]byte(raw), v)
}

func verdictSchema() *schema {
	return &schema{
		Type: "OBJECT",
		Properties: map[string]*schema{
			"correct":      {Type: "BOOLEAN"},
			"alreadyFound": {Type: "BOOLEAN"},
			"explanation":  {Type: "STRING"},
		},
		Required: []string{"correct", "explanation"},
	}
}

// itemListSchema wraps the item array under the given key ("differences" or
// "errors").
func itemListSchema(key string) *schema {
	return &schema{
		Type: "OBJECT",
		Properties: map[string]*schema{
			key: {
				Type: "ARRAY",
				Items: &schema{
					Type: "OBJECT",
					Properties: map[string]*schema{
						"id":          {Type: "INTEGER"},
						"description": {Type: "STRING"},
						"box_2d":      {Type: "ARRAY", Items: &schema{Type: "INTEGER"}},
					},
					Required: []string{"id", "description", "box_2d"},
				},
			},
		},
		Required: []string{key},
	}
}

func jsonConfig(s *schema) *genConfig {
	return &genConfig{ResponseMIMEType: "application/json", ResponseSchema: s}
}

// GenerateComparison produces the DIFF image pair: a base illustration of
// the subject, then an edit of that image with 6-8 differences.
func (c *Client) GenerateComparison(ctx context.Context, subject string) (*game.ComparisonContent, error) {
	basePrompt := fmt.Sprintf("Generate a highly detailed illustration of %s. Modern vector art style. Clean, multiple elements, clear background. NO text, NO watermarks.", subject)
	resp, err := c.generate(ctx, c.ImageModel, []part{textPart(basePrompt)}, &genConfig{ImageConfig: &imageConfig{AspectRatio: "1:1"}})
	if err != nil {
		return nil, fmt.Errorf("generate base image: %w", err)
	}
	original := resp.firstImage()
	if original == "" {
		return nil, errors.New("no base image in response")
	}

	modPrompt := "Edit this image to introduce 6 to 8 clever differences. Avoid simple color swaps. Add/remove objects, change shapes, alter expressions, change textures. Range from medium to challenging. NO text."
	resp, err = c.generate(ctx, c.ImageModel, []part{imagePart(original), textPart(modPrompt)}, nil)
	if err != nil {
		return nil, fmt.Errorf("generate modified image: %w", err)
	}
	modified := resp.firstImage()
	if modified == "" {
		return nil, errors.New("no modified image in response")
	}
	return &game.ComparisonContent{Original: original, Modified: modified}, nil
}

// GenerateAnomaly produces a single WRONG scene containing 5-7 deliberate
// logical errors.
func (c *Client) GenerateAnomaly(ctx context.Context, subject string) (*game.AnomalyContent, error) {
	prompt := fmt.Sprintf(`Generate a single, high-quality, professional illustration of %s.
The image MUST contain 5 to 7 intentional 'logical errors' or 'surreal glitches'.
Examples of errors: a clock with 13 numbers, a person wearing two different shoes, a shadow pointing the wrong way, gravity-defying liquids, an animal with extra limbs, or a tree with fruit from a different species.
The errors should be subtle and integrated naturally into the artistic style.
NO text labels, NO watermarks. Style: Modern digital painting.`, subject)
	resp, err := c.generate(ctx, c.ImageModel, []part{textPart(prompt)}, &genConfig{ImageConfig: &imageConfig{AspectRatio: "1:1"}})
	if err != nil {
		return nil, fmt.Errorf("generate anomaly image: %w", err)
	}
	img := resp.firstImage()
	if img == "" {
		return nil, errors.New("no image in response")
	}
	return &game.AnomalyContent{Image: img}, nil
}

// GenerateLogic produces a text riddle with title, question, and the
// server-side solution.
func (c *Client) GenerateLogic(ctx context.Context, topic string) (*game.LogicContent, error) {
	if topic == "" {
		topic = "random logical thinking"
	}
	prompt := fmt.Sprintf(`Generate a unique, challenging logical puzzle or situational IQ test.
Topic: %s.
The puzzle should have a clear, definitive solution.
Provide a title, the question text, and the detailed solution/explanation.
IMPORTANT: DO NOT USE ANY MARKDOWN FORMATTING (like **bolding**) in the question or solution. Provide clean, raw text only.
Return JSON.`, topic)
	s := &schema{
		Type: "OBJECT",
		Properties: map[string]*schema{
			"title":    {Type: "STRING"},
			"question": {Type: "STRING"},
			"solution": {Type: "STRING"},
		},
		Required: []string{"title", "question", "solution"},
	}
	resp, err := c.generate(ctx, c.VisionModel, []part{textPart(prompt)}, jsonConfig(s))
	if err != nil {
		return nil, fmt.Errorf("generate logic puzzle: %w", err)
	}
	var out game.LogicContent
	if err := decodeJSON(resp.text(), &out); err != nil {
		return nil, fmt.Errorf("decode logic puzzle: %w", err)
	}
	if out.Question == "" {
		return nil, errors.New("logic puzzle missing question")
	}
	return &out, nil
}

func (c *Client) VerifyComparison(ctx context.Context, cc *game.ComparisonContent, guess string, found []string) (game.Verdict, error) {
	foundJSON, _ := json.Marshal(found)
	prompt := fmt.Sprintf(`I have two images with 6 to 8 complex differences.
The user guessed: %q.
Previously found differences: %s.
Check if the user's guess describes an actual difference.
Return JSON format.`, guess, foundJSON)
	parts := []part{
		textPart("Image 1 (Original):"),
		imagePart(cc.Original),
		textPart("Image 2 (Modified):"),
		imagePart(cc.Modified),
		textPart(prompt),
	}
	return c.verdict(ctx, parts)
}

func (c *Client) VerifyAnomaly(ctx context.Context, a *game.AnomalyContent, guess string, found []string) (game.Verdict, error) {
	foundJSON, _ := json.Marshal(found)
	prompt := fmt.Sprintf(`This image contains several intentional logical errors/anomalies.
The user guessed that %q is wrong with the image.
Previously found errors: %s.

1. Identify all intentional errors in the image.
2. Check if the user's guess accurately identifies one of these errors.
3. Return correct=true if they found a new error.
4. Return alreadyFound=true if they found one that was already listed.
5. If wrong, give a very subtle hint.
Return JSON.`, guess, foundJSON)
	return c.verdict(ctx, []part{imagePart(a.Image), textPart(prompt)})
}

func (c *Client) VerifyLogic(ctx context.Context, question, guess string) (game.Verdict, error) {
	prompt := fmt.Sprintf(`Question: %q
User's Answer: %q

Evaluate if the user's answer is logically correct or sufficiently identifies the solution to the question.
Be reasonable with semantic variations.
IMPORTANT: DO NOT USE ANY MARKDOWN FORMATTING (like **bolding**) in the explanation. Provide clean, raw text only.
Return JSON with correct (boolean) and explanation (string).`, question, guess)
	return c.verdict(ctx, []part{textPart(prompt)})
}

func (c *Client) verdict(ctx context.Context, parts []part) (game.Verdict, error) {
	resp, err := c.generate(ctx, c.VisionModel, parts, jsonConfig(verdictSchema()))
	if err != nil {
		return game.Verdict{}, err
	}
	var v game.Verdict
	if err := decodeJSON(resp.text(), &v); err != nil {
		return game.Verdict{}, fmt.Errorf("decode verdict: %w", err)
	}
	return v, nil
}

// ListDifferences asks the vision model for the authoritative DIFF answer
// set with 0-1000 bounding boxes.
func (c *Client) ListDifferences(ctx context.Context, cc *game.ComparisonContent) ([]game.RevealedItem, error) {
	prompt := `List 6-8 distinct differences between these two images.
Provide id, description (max 15 words), and box_2d [ymin, xmin, ymax, xmax].
Return JSON.`
	parts := []part{
		textPart("Image 1 (Original):"),
		imagePart(cc.Original),
		textPart("Image 2 (Modified):"),
		imagePart(cc.Modified),
		textPart(prompt),
	}
	resp, err := c.generate(ctx, c.VisionModel, parts, jsonConfig(itemListSchema("differences")))
	if err != nil {
		return nil, err
	}
	var out struct {
		Differences []game.RevealedItem `json:"differences"`
	}
	if err := decodeJSON(resp.text(), &out); err != nil {
		return nil, fmt.Errorf("decode differences: %w", err)
	}
	return out.Differences, nil
}

// ListAnomalies asks the vision model for the authoritative WRONG answer set.
func (c *Client) ListAnomalies(ctx context.Context, a *game.AnomalyContent) ([]game.RevealedItem, error) {
	prompt := `Analyze this image and list all the intentional 'logical errors' or 'anomalies'.
For each error:
1. 'id' (integer)
2. 'description' (short)
3. 'box_2d' [ymin, xmin, ymax, xmax] (0-1000)
Return JSON.`
	resp, err := c.generate(ctx, c.VisionModel, []part{imagePart(a.Image), textPart(prompt)}, jsonConfig(itemListSchema("errors")))
	if err != nil {
		return nil, err
	}
	var out struct {
		Errors []game.RevealedItem `json:"errors"`
	}
	if err := decodeJSON(resp.text(), &out); err != nil {
		return nil, fmt.Errorf("decode errors: %w", err)
	}
	return out.Errors, nil
}
