package services

import (
	"context"
	"errors"
	"fmt"

	"quest-reward-system/models"
)

// TelegramJoinVerifier checks channel/group membership through the Bot API.
// Membership lookups are deterministic: "left"/"kicked" is a real answer,
// only transport failures are retryable.
type TelegramJoinVerifier struct {
	Client *TelegramClient
}

func NewTelegramJoinVerifier(client *TelegramClient) *TelegramJoinVerifier {
	return &TelegramJoinVerifier{Client: client}
}

func (v *TelegramJoinVerifier) Verify(ctx context.Context, quest *models.Quest, user *models.User, proof models.ProofPayload) (*VerifyResult, error) {
	if quest.ChannelID == "" {
		return nil, fmt.Errorf("quest %s has no channel_id configured", quest.ID)
	}
	if user.TelegramID == "" {
		return &VerifyResult{Decision: VerifyReject, Message: "no telegram account linked"}, nil
	}

	status, err := v.Client.GetChatMemberStatus(ctx, quest.ChannelID, user.TelegramID)
	if err != nil {
		if errors.Is(err, ErrVerifierUnavailable) {
			return nil, err
		}
		// deterministic API answer (e.g. user never seen by the bot)
		return &VerifyResult{Decision: VerifyReject, Message: "membership could not be confirmed"}, nil
	}

	switch status {
	case "member", "administrator", "creator":
		return &VerifyResult{Decision: VerifyApprove, Message: "membership confirmed"}, nil
	case "restricted":
		// restricted users are still in the chat
		return &VerifyResult{Decision: VerifyApprove, Message: "membership confirmed (restricted)"}, nil
	default: // left, kicked
		return &VerifyResult{Decision: VerifyReject, Message: "not a member of the channel"}, nil
	}
}
