package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"melodygram/model"
)

// ErrInsufficientCredits is returned when a debit would drive the balance
// below zero. The guarding UPDATE leaves state untouched in that case.
var ErrInsufficientCredits = errors.New("insufficient credits")

// CreditRepository persists the credit ledger. The balance row and its
// justifying transaction row are always written inside one SQL transaction,
// keeping balance == starter + sum(amounts) at all times.
type CreditRepository interface {
	// EnsureUser provisions the balance row for a new user with the starter
	// amount and its welcome transaction. Returns true when the user was
	// newly provisioned; idempotent otherwise.
	EnsureUser(ctx context.Context, userID int64, starter int, welcome model.CreditTransaction) (bool, error)
	GetBalance(ctx context.Context, userID int64) (int, error)
	// Apply atomically adjusts the balance by tx.Amount and appends tx.
	// A negative amount that would overdraw fails with ErrInsufficientCredits
	// and mutates nothing.
	Apply(ctx context.Context, userID int64, tx model.CreditTransaction) error
	ListTransactions(ctx context.Context, userID int64, limit int) ([]model.CreditTransaction, error)
}

// mysqlCreditRepository implements CreditRepository for MySQL.
type mysqlCreditRepository struct {
	db *sql.DB
}

// NewMySQLCreditRepository creates a new mysqlCreditRepository.
func NewMySQLCreditRepository(db *sql.DB) CreditRepository {
	return &mysqlCreditRepository{db: db}
}

func (r *mysqlCreditRepository) EnsureUser(ctx context.Context, userID int64, starter int, welcome model.CreditTransaction) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT IGNORE INTO user_credits (user_id, balance) VALUES (?, ?)",
		userID, starter)
	if err != nil {
		return false, fmt.Errorf("failed to provision credits for user %d: %w", userID, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		// Already provisioned; nothing to record.
		return false, tx.Commit()
	}

	if err := insertTransaction(ctx, tx, userID, welcome); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit provision: %w", err)
	}
	return true, nil
}

func (r *mysqlCreditRepository) GetBalance(ctx context.Context, userID int64) (int, error) {
	var balance int
	err := r.db.QueryRowContext(ctx,
		"SELECT balance FROM user_credits WHERE user_id = ?", userID).Scan(&balance)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to query balance for user %d: %w", userID, err)
	}
	return balance, nil
}

func (r *mysqlCreditRepository) Apply(ctx context.Context, userID int64, creditTx model.CreditTransaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// The balance guard lives in the WHERE clause so an overdraw matches no
	// rows instead of writing a negative balance.
	res, err := tx.ExecContext(ctx,
		"UPDATE user_credits SET balance = balance + ? WHERE user_id = ? AND balance + ? >= 0",
		creditTx.Amount, userID, creditTx.Amount)
	if err != nil {
		return fmt.Errorf("failed to update balance for user %d: %w", userID, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return ErrInsufficientCredits
	}

	if err := insertTransaction(ctx, tx, userID, creditTx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit credit transaction: %w", err)
	}
	return nil
}

func (r *mysqlCreditRepository) ListTransactions(ctx context.Context, userID int64, limit int) ([]model.CreditTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, user_id, type, amount, description, song_id, plan_id, created_at FROM credit_transactions WHERE user_id = ? ORDER BY created_at DESC LIMIT ?",
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions for user %d: %w", userID, err)
	}
	defer rows.Close()

	var txs []model.CreditTransaction
	for rows.Next() {
		var t model.CreditTransaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Description, &t.SongID, &t.PlanID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func insertTransaction(ctx context.Context, tx *sql.Tx, userID int64, creditTx model.CreditTransaction) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO credit_transactions (id, user_id, type, amount, description, song_id, plan_id) VALUES (?, ?, ?, ?, ?, ?, ?)",
		creditTx.ID, userID, creditTx.Type, creditTx.Amount, creditTx.Description, creditTx.SongID, creditTx.PlanID)
	if err != nil {
		return fmt.Errorf("failed to insert credit transaction: %w", err)
	}
	return nil
}
