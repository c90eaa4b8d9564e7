package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"quest-reward-system/models"
)

// SocialIdentityLookup resolves the external social account bound to a local
// user, empty when nothing is bound.
type SocialIdentityLookup interface {
	Lookup(userID string) (externalID string, err error)
}

// TwitterFollowVerifier confirms the bound account follows the quest target.
type TwitterFollowVerifier struct {
	Client *TwitterClient
}

func NewTwitterFollowVerifier(client *TwitterClient) *TwitterFollowVerifier {
	return &TwitterFollowVerifier{Client: client}
}

func (v *TwitterFollowVerifier) Verify(ctx context.Context, quest *models.Quest, user *models.User, proof models.ProofPayload) (*VerifyResult, error) {
	if user.TwitterID == "" {
		return &VerifyResult{Decision: VerifyReject, Message: "no twitter account linked"}, nil
	}
	targetHandle := handleFromTargetURL(quest.TargetURL)
	if targetHandle == "" {
		return nil, fmt.Errorf("quest %s has no usable target_url", quest.ID)
	}

	target, err := v.Client.LookupUser(ctx, targetHandle)
	if err != nil {
		return nil, err
	}
	following, err := v.Client.IsFollowing(ctx, user.TwitterID, target.ID)
	if err != nil {
		return nil, err
	}
	if !following {
		return &VerifyResult{
			Decision:   VerifyReject,
			Message:    fmt.Sprintf("not following @%s", target.Username),
			ExternalID: user.TwitterID,
		}, nil
	}
	return &VerifyResult{Decision: VerifyApprove, Message: "follow confirmed", ExternalID: user.TwitterID}, nil
}

// TwitterRetweetVerifier confirms the bound account retweeted the target tweet.
type TwitterRetweetVerifier struct {
	Client *TwitterClient
}

func NewTwitterRetweetVerifier(client *TwitterClient) *TwitterRetweetVerifier {
	return &TwitterRetweetVerifier{Client: client}
}

func (v *TwitterRetweetVerifier) Verify(ctx context.Context, quest *models.Quest, user *models.User, proof models.ProofPayload) (*VerifyResult, error) {
	if user.TwitterID == "" {
		return &VerifyResult{Decision: VerifyReject, Message: "no twitter account linked"}, nil
	}
	tweetID := tweetIDFromTargetURL(quest.TargetURL)
	if tweetID == "" {
		return nil, fmt.Errorf("quest %s has no usable target_url", quest.ID)
	}

	retweeted, err := v.Client.HasRetweeted(ctx, user.TwitterID, tweetID)
	if err != nil {
		return nil, err
	}
	if !retweeted {
		return &VerifyResult{Decision: VerifyReject, Message: "retweet not found", ExternalID: user.TwitterID}, nil
	}
	return &VerifyResult{Decision: VerifyApprove, Message: "retweet confirmed", ExternalID: user.TwitterID}, nil
}

// handleFromTargetURL extracts the account handle from a profile URL like
// https://twitter.com/someaccount or a bare "@someaccount".
func handleFromTargetURL(target string) string {
	target = strings.TrimSpace(target)
	if target == "" {
		return ""
	}
	if strings.HasPrefix(target, "@") {
		return strings.TrimPrefix(target, "@")
	}
	u, err := url.Parse(target)
	if err != nil {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		return ""
	}
	return parts[0]
}

// tweetIDFromTargetURL extracts the tweet id from a status URL like
// https://twitter.com/acc/status/1234567890.
func tweetIDFromTargetURL(target string) string {
	u, err := url.Parse(strings.TrimSpace(target))
	if err != nil {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, p := range parts {
		if p == "status" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}
