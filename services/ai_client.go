package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// AIClient calls the screenshot-classification service.
type AIClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewAIClient(baseURL, token string) *AIClient {
	return &AIClient{
		BaseURL: baseURL,
		Token:   token,
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Classification is the AI service's verdict on a proof screenshot.
type Classification struct {
	Label             string  `json:"label"` // e.g. "valid", "invalid", "unrelated"
	Confidence        float64 `json:"confidence"`
	NeedsManualReview bool    `json:"needs_manual_review"`
	Notes             string  `json:"notes,omitempty"`
}

// ClassifyScreenshot sends the proof image URL and the quest context for
// classification.
func (c *AIClient) ClassifyScreenshot(ctx context.Context, imageURL, questTitle, questDescription string) (*Classification, error) {
	reqBody := map[string]interface{}{
		"image_url":   imageURL,
		"task_title":  questTitle,
		"task_detail": questDescription,
	}
	jsonData, _ := json.Marshal(reqBody)

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/v1/classify", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerifierUnavailable, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 256*1024))

	if resp.StatusCode != http.StatusOK {
		log.Printf("[AI] classify returned %d: %s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("%w: status %d", ErrVerifierUnavailable, resp.StatusCode)
	}

	var out Classification
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: bad response", ErrVerifierUnavailable)
	}
	return &out, nil
}
