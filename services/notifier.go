package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Notifier delivers reward notifications. Delivery is best-effort: failures
// are logged by callers, never propagated into the reward path.
type Notifier interface {
	NotifyRewardGranted(ctx context.Context, userID, questTitle string, amount float64, rewardType string) error
}

// HTTPNotifier posts to the notification service.
type HTTPNotifier struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewHTTPNotifier(baseURL, token string) *HTTPNotifier {
	return &HTTPNotifier{
		BaseURL: baseURL,
		Token:   token,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (n *HTTPNotifier) NotifyRewardGranted(ctx context.Context, userID, questTitle string, amount float64, rewardType string) error {
	reqBody := map[string]interface{}{
		"user_id":     userID,
		"quest_title": questTitle,
		"amount":      amount,
		"reward_type": rewardType,
	}
	jsonData, _ := json.Marshal(reqBody)

	req, err := http.NewRequestWithContext(ctx, "POST", n.BaseURL+"/v1/notifications/reward", bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+n.Token)

	resp, err := n.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4*1024))

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification service returned %d", resp.StatusCode)
	}
	return nil
}
