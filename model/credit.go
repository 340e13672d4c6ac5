package model

import (
	"database/sql"
	"time"
)

// Credit transaction types.
const (
	TxTypePurchase     = "purchase"
	TxTypeSpent        = "spent"
	TxTypeRefund       = "refund"
	TxTypeSubscription = "subscription"
)

// CreditTransaction is one append-only ledger row. Amount is signed:
// positive rows add credits, negative rows spend them. Rows are never
// mutated after creation.
type CreditTransaction struct {
	ID          string         `json:"id"`
	UserID      int64          `json:"userId"`
	Type        string         `json:"type"` // purchase, spent, refund, subscription
	Amount      int            `json:"amount"`
	Description string         `json:"description"`
	SongID      sql.NullString `json:"songId,omitempty"`
	PlanID      sql.NullString `json:"planId,omitempty"`
	CreatedAt   time.Time      `json:"timestamp"`
}

// UserCredits is the cached balance plus the justifying transaction log,
// newest first. Balance and its justifying transaction are always written
// together in one SQL transaction, so balance == starter + sum(amounts)
// holds at all times.
type UserCredits struct {
	Balance      int                 `json:"balance"`
	Transactions []CreditTransaction `json:"transactions"`
	LastUpdated  time.Time           `json:"lastUpdated"`
}
