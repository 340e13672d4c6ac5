package credit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"melodygram/logger"
	"melodygram/model"
	"melodygram/repository"

	"github.com/google/uuid"
)

// Ledger tracks per-user credit balances. One credit buys exactly one second
// of generated audio.
type Ledger struct {
	repo    repository.CreditRepository
	starter int
	rate    float64 // USD per credit
}

// NewLedger creates a ledger with the given starter balance and price rate.
func NewLedger(repo repository.CreditRepository, starter int, rate float64) *Ledger {
	return &Ledger{repo: repo, starter: starter, rate: rate}
}

// CreditsForDuration converts a duration in seconds to credits. The mapping
// is the identity: one second costs one credit.
func (l *Ledger) CreditsForDuration(seconds int) int {
	return seconds
}

// PriceForDuration returns the USD price for a duration in seconds.
func (l *Ledger) PriceForDuration(seconds int) float64 {
	return float64(seconds) * l.rate
}

// Balance returns the user's current balance, provisioning a new user with
// the starter amount and its welcome transaction on first call. Repeated
// calls never append a second welcome transaction.
func (l *Ledger) Balance(ctx context.Context, userID int64) (int, error) {
	welcome := model.CreditTransaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        model.TxTypePurchase,
		Amount:      l.starter,
		Description: fmt.Sprintf("Welcome bonus - %d free credits", l.starter),
	}
	created, err := l.repo.EnsureUser(ctx, userID, l.starter, welcome)
	if err != nil {
		return 0, fmt.Errorf("failed to ensure credits account: %w", err)
	}
	if created {
		logger.Info("Provisioned starter credits",
			logger.Int64("userId", userID),
			logger.Int("amount", l.starter))
	}
	return l.repo.GetBalance(ctx, userID)
}

// HasEnoughCredits reports whether the user can pay for the given duration.
func (l *Ledger) HasEnoughCredits(ctx context.Context, userID int64, seconds int) (bool, error) {
	balance, err := l.Balance(ctx, userID)
	if err != nil {
		return false, err
	}
	return balance >= l.CreditsForDuration(seconds), nil
}

// Spend debits credits for the given duration. Returns false without
// mutating anything when the balance is insufficient.
func (l *Ledger) Spend(ctx context.Context, userID int64, seconds int, songID, title string) (bool, error) {
	if _, err := l.Balance(ctx, userID); err != nil {
		return false, err
	}

	amount := l.CreditsForDuration(seconds)
	tx := model.CreditTransaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        model.TxTypeSpent,
		Amount:      -amount,
		Description: fmt.Sprintf("Generated %q (%ds)", title, seconds),
		SongID:      sql.NullString{String: songID, Valid: songID != ""},
	}
	err := l.repo.Apply(ctx, userID, tx)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientCredits) {
			logger.Warn("Spend rejected, insufficient credits",
				logger.Int64("userId", userID),
				logger.Int("requested", amount))
			return false, nil
		}
		return false, fmt.Errorf("failed to spend credits: %w", err)
	}
	return true, nil
}

// Refund returns previously spent credits after a failed generation.
func (l *Ledger) Refund(ctx context.Context, userID int64, seconds int, songID, reason string) error {
	amount := l.CreditsForDuration(seconds)
	if amount <= 0 {
		return nil
	}
	if _, err := l.Balance(ctx, userID); err != nil {
		return err
	}
	tx := model.CreditTransaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        model.TxTypeRefund,
		Amount:      amount,
		Description: reason,
		SongID:      sql.NullString{String: songID, Valid: songID != ""},
	}
	return l.repo.Apply(ctx, userID, tx)
}

// AddCredits credits the user's balance.
func (l *Ledger) AddCredits(ctx context.Context, userID int64, amount int, description string) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	if _, err := l.Balance(ctx, userID); err != nil {
		return err
	}
	tx := model.CreditTransaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        model.TxTypePurchase,
		Amount:      amount,
		Description: description,
	}
	return l.repo.Apply(ctx, userID, tx)
}

// AddSubscriptionCredits credits the monthly allocation of a plan.
func (l *Ledger) AddSubscriptionCredits(ctx context.Context, userID int64, amount int, planName, planID string) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	if _, err := l.Balance(ctx, userID); err != nil {
		return err
	}
	tx := model.CreditTransaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        model.TxTypeSubscription,
		Amount:      amount,
		Description: fmt.Sprintf("%s subscription credits", planName),
		PlanID:      sql.NullString{String: planID, Valid: planID != ""},
	}
	return l.repo.Apply(ctx, userID, tx)
}

// Transactions lists the user's ledger rows, newest first.
func (l *Ledger) Transactions(ctx context.Context, userID int64, limit int) ([]model.CreditTransaction, error) {
	if _, err := l.Balance(ctx, userID); err != nil {
		return nil, err
	}
	return l.repo.ListTransactions(ctx, userID, limit)
}
