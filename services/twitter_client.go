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

// TwitterClient wraps the follow/retweet lookups the verifiers need.
// Backed by the v2 API with an app bearer token.
type TwitterClient struct {
	BaseURL string // https://api.twitter.com
	Bearer  string
	Client  *http.Client
}

func NewTwitterClient(baseURL, bearer string) *TwitterClient {
	if baseURL == "" {
		baseURL = "https://api.twitter.com"
	}
	return &TwitterClient{
		BaseURL: baseURL,
		Bearer:  bearer,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *TwitterClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.Bearer)

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerifierUnavailable, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 256*1024))

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		log.Printf("[TWITTER] %s returned %d", path, resp.StatusCode)
		return fmt.Errorf("%w: status %d", ErrVerifierUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("twitter api %s: status %d: %s", path, resp.StatusCode, string(body))
	}
	return json.Unmarshal(body, out)
}

type twitterUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// LookupUser resolves a handle to the account id.
func (c *TwitterClient) LookupUser(ctx context.Context, handle string) (*twitterUser, error) {
	var out struct {
		Data twitterUser `json:"data"`
	}
	path := fmt.Sprintf("/2/users/by/username/%s", url.PathEscape(handle))
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	if out.Data.ID == "" {
		return nil, fmt.Errorf("twitter user %q not found", handle)
	}
	return &out.Data, nil
}

// IsFollowing reports whether sourceID follows the target account.
func (c *TwitterClient) IsFollowing(ctx context.Context, sourceID, targetID string) (bool, error) {
	// paginate the source's following list; quest targets are expected to
	// appear in the first pages for genuine follows
	token := ""
	for page := 0; page < 5; page++ {
		path := fmt.Sprintf("/2/users/%s/following?max_results=1000", url.PathEscape(sourceID))
		if token != "" {
			path += "&pagination_token=" + url.QueryEscape(token)
		}
		var out struct {
			Data []twitterUser `json:"data"`
			Meta struct {
				NextToken string `json:"next_token"`
			} `json:"meta"`
		}
		if err := c.get(ctx, path, &out); err != nil {
			return false, err
		}
		for _, u := range out.Data {
			if u.ID == targetID {
				return true, nil
			}
		}
		if out.Meta.NextToken == "" {
			return false, nil
		}
		token = out.Meta.NextToken
	}
	return false, nil
}

// HasRetweeted reports whether userID appears among the tweet's retweeters.
func (c *TwitterClient) HasRetweeted(ctx context.Context, userID, tweetID string) (bool, error) {
	token := ""
	for page := 0; page < 5; page++ {
		path := fmt.Sprintf("/2/tweets/%s/retweeted_by?max_results=100", url.PathEscape(tweetID))
		if token != "" {
			path += "&pagination_token=" + url.QueryEscape(token)
		}
		var out struct {
			Data []twitterUser `json:"data"`
			Meta struct {
				NextToken string `json:"next_token"`
			} `json:"meta"`
		}
		if err := c.get(ctx, path, &out); err != nil {
			return false, err
		}
		for _, u := range out.Data {
			if u.ID == userID {
				return true, nil
			}
		}
		if out.Meta.NextToken == "" {
			return false, nil
		}
		token = out.Meta.NextToken
	}
	return false, nil
}
