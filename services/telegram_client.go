package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

// TelegramClient is a thin Bot API client; only the calls the membership
// verifier needs.
type TelegramClient struct {
	BaseURL  string // https://api.telegram.org
	BotToken string
	Client   *http.Client
}

func NewTelegramClient(baseURL, botToken string) *TelegramClient {
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	return &TelegramClient{
		BaseURL:  baseURL,
		BotToken: botToken,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type chatMemberResponse struct {
	OK     bool `json:"ok"`
	Result struct {
		Status string `json:"status"`
	} `json:"result"`
	Description string `json:"description"`
}

// GetChatMemberStatus calls getChatMember and returns the raw status string
// (member, administrator, creator, left, kicked, restricted).
func (c *TelegramClient) GetChatMemberStatus(ctx context.Context, chatID, telegramUserID string) (string, error) {
	endpoint := fmt.Sprintf("%s/bot%s/getChatMember?chat_id=%s&user_id=%s",
		c.BaseURL, c.BotToken, url.QueryEscape(chatID), url.QueryEscape(telegramUserID))

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrVerifierUnavailable, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode >= 500 {
		log.Printf("[TELEGRAM] getChatMember %d: %s", resp.StatusCode, string(body))
		return "", fmt.Errorf("%w: status %d", ErrVerifierUnavailable, resp.StatusCode)
	}

	var out chatMemberResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: bad response", ErrVerifierUnavailable)
	}
	if !out.OK {
		// user_not_found etc. are deterministic answers, not outages
		return "", fmt.Errorf("telegram api: %s", out.Description)
	}
	return out.Result.Status, nil
}
