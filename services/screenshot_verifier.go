package services

import (
	"context"
	"strings"

	"quest-reward-system/models"
)

// ScreenshotVerifier delegates proof images to the AI classifier. Confident
// positives auto-approve, confident negatives reject, everything else lands
// in the manual review queue.
type ScreenshotVerifier struct {
	Client        *AIClient
	MinConfidence float64
}

func NewScreenshotVerifier(client *AIClient) *ScreenshotVerifier {
	return &ScreenshotVerifier{Client: client, MinConfidence: 0.8}
}

func (v *ScreenshotVerifier) Verify(ctx context.Context, quest *models.Quest, user *models.User, proof models.ProofPayload) (*VerifyResult, error) {
	imageURL := proof.ImageURL
	if imageURL == "" {
		return &VerifyResult{Decision: VerifyReject, Message: "proof image missing"}, nil
	}

	cls, err := v.Client.ClassifyScreenshot(ctx, imageURL, quest.Title, quest.Description)
	if err != nil {
		return nil, err
	}

	confidence := cls.Confidence
	switch {
	case cls.NeedsManualReview || confidence < v.MinConfidence:
		return &VerifyResult{
			Decision:   VerifyNeedsReview,
			Message:    "queued for manual review",
			Confidence: &confidence,
		}, nil
	case strings.EqualFold(cls.Label, "valid"):
		return &VerifyResult{
			Decision:   VerifyApprove,
			Message:    "screenshot verified",
			Confidence: &confidence,
		}, nil
	default:
		return &VerifyResult{
			Decision:   VerifyReject,
			Message:    "screenshot does not show quest completion",
			Confidence: &confidence,
		}, nil
	}
}
