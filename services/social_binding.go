package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"quest-reward-system/models"

	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

// SocialBindingService binds a Twitter account to a local user through a
// verification code: the user puts the issued code into their profile bio,
// then asks us to confirm. It also serves as the SocialIdentityLookup used
// by the action state machine.
type SocialBindingService struct {
	DB      *gorm.DB
	Codes   CodeStore
	Twitter *TwitterClient
}

func NewSocialBindingService(db *gorm.DB, codes CodeStore, twitter *TwitterClient) *SocialBindingService {
	return &SocialBindingService{DB: db, Codes: codes, Twitter: twitter}
}

// Lookup implements SocialIdentityLookup.
func (s *SocialBindingService) Lookup(userID string) (string, error) {
	var user models.User
	if err := s.DB.Select("twitter_id").First(&user, "id = ?", userID).Error; err != nil {
		return "", err
	}
	return user.TwitterID, nil
}

// IssueCode creates the short-lived binding code for the user.
func (s *SocialBindingService) IssueCode(ctx context.Context, userID string) (string, error) {
	return s.Codes.Issue(ctx, userID)
}

// Bind resolves the handle, checks the submitted code against the issued
// one, and stores the twitter identity on the user. Rebinding to a new
// handle is allowed; the rewarded-identity exclusivity check still prevents
// one external account from harvesting a quest twice.
func (s *SocialBindingService) Bind(ctx context.Context, userID, handle, code string) error {
	handle = strings.TrimPrefix(strings.TrimSpace(norm.NFC.String(handle)), "@")
	if handle == "" {
		return fmt.Errorf("handle required")
	}

	ok, err := s.Codes.Check(ctx, userID, code)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("verification code invalid or expired")
	}

	account, err := s.Twitter.LookupUser(ctx, handle)
	if err != nil {
		return err
	}

	err = s.DB.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"twitter_id":     account.ID,
		"twitter_handle": account.Username,
	}).Error
	if err != nil {
		return fmt.Errorf("bind twitter: %w", err)
	}

	if err := s.Codes.Consume(ctx, userID); err != nil {
		log.Printf("[BINDING] failed to consume code for %s: %v", userID, err)
	}
	log.Printf("[BINDING] user %s bound to twitter @%s (%s)", userID, account.Username, account.ID)
	return nil
}
