package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/rentease/rentease-api/internal/models"
	"github.com/rentease/rentease-api/internal/repository"
)

// ErrReferralNotFound indicates the referral code does not exist.
var ErrReferralNotFound = errors.New("referral code not found")

// ErrReferralUsed indicates the code was already redeemed.
var ErrReferralUsed = errors.New("referral code already used")

// ErrSelfReferral indicates a student tried to redeem their own code.
var ErrSelfReferral = errors.New("cannot redeem own referral code")

// ReferralService issues invite codes and credits rewards when a referred
// student's tenancy activates.
type ReferralService interface {
	IssueCode(ctx context.Context, referrerID uint) (models.Referral, error)
	Redeem(ctx context.Context, code string, referredID uint) error
	CreditOnActivation(ctx context.Context, referredID, enrollmentID uint) error
	ListForReferrer(ctx context.Context, referrerID uint) ([]models.Referral, error)
}

type referralService struct {
	referrals    repository.ReferralRepository
	rewardAmount int64
	logger       zerolog.Logger
	now          func() time.Time
}

// NewReferralService builds the referral service. rewardAmount in paise.
func NewReferralService(referrals repository.ReferralRepository, rewardAmount int64, logger zerolog.Logger) ReferralService {
	return &referralService{
		referrals:    referrals,
		rewardAmount: rewardAmount,
		logger:       logger.With().Str("component", "referral_service").Logger(),
		now:          time.Now,
	}
}

// IssueCode mints a fresh invite code for the referrer.
func (s *referralService) IssueCode(ctx context.Context, referrerID uint) (models.Referral, error) {
	code, err := generateReferralCode()
	if err != nil {
		return models.Referral{}, err
	}

	referral := models.Referral{
		ReferrerID:   referrerID,
		Code:         code,
		Status:       models.ReferralStatusIssued,
		RewardAmount: s.rewardAmount,
	}
	if err := s.referrals.Create(ctx, &referral); err != nil {
		return models.Referral{}, err
	}

	return referral, nil
}

// Redeem binds an issued code to the referred student. The reward stays
// pending until their enrollment activates.
func (s *referralService) Redeem(ctx context.Context, code string, referredID uint) error {
	referral, err := s.referrals.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReferralNotFound
		}
		return err
	}

	if referral.Status != models.ReferralStatusIssued {
		return ErrReferralUsed
	}
	if referral.ReferrerID == referredID {
		return ErrSelfReferral
	}

	referral.ReferredID = &referredID
	referral.Status = models.ReferralStatusJoined

	return s.referrals.Save(ctx, &referral)
}

// CreditOnActivation credits the reward for a referred student whose
// enrollment just became active. Missing referral is not an error.
func (s *referralService) CreditOnActivation(ctx context.Context, referredID, enrollmentID uint) error {
	referral, err := s.referrals.GetJoinedByReferred(ctx, referredID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	creditedAt := s.now().UTC()
	referral.EnrollmentID = &enrollmentID
	referral.Status = models.ReferralStatusCredited
	referral.CreditedAt = &creditedAt

	if err := s.referrals.Save(ctx, &referral); err != nil {
		return err
	}

	s.logger.Info().
		Uint("referrer_id", referral.ReferrerID).
		Uint("referred_id", referredID).
		Int64("reward", referral.RewardAmount).
		Msg("referral reward credited")

	return nil
}

func (s *referralService) ListForReferrer(ctx context.Context, referrerID uint) ([]models.Referral, error) {
	return s.referrals.ListForReferrer(ctx, referrerID)
}

// generateReferralCode produces a short uppercase code, e.g. "K7KQ2ZJM".
func generateReferralCode() (string, error) {
	const alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate referral code: %w", err)
	}
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}

	return string(buf), nil
}
