package models

import "time"

type TransactionType string
const (
	TxnSend    TransactionType = "send"
	TxnCashOut TransactionType = "cashOut"
	TxnCashIn  TransactionType = "cashIn"
)

type TransactionStatus string
const (
	TxnPending    TransactionStatus = "pending"
	TxnSuccessful TransactionStatus = "successful"
	TxnFailed     TransactionStatus = "failed"
)

// Transaction is an immutable history record. Settling a pending cash-in
// appends a second record pointing at the first through SettlesID.
type Transaction struct {
	ID             string            `json:"id"`
	Type           TransactionType   `json:"type"`
	Amount         Amount            `json:"amount"`
	Fee            Amount            `json:"fee"`
	Debited        Amount            `json:"debited"`
	Credited       Amount            `json:"credited"`
	Status         TransactionStatus `json:"status"`
	Sender         Party             `json:"sender"`
	Receiver       Party             `json:"receiver"`
	Reason         string            `json:"reason,omitempty"`
	IdempotencyKey *string           `json:"-"`
	SettlesID      *string           `json:"settles_id,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// Posting is one balance movement implied by a record.
type Posting struct {
	AccountID string
	Delta     Amount
}

// Postings lists the balance movements a record stands for. Only successful
// records move money; for a cash-in the agent (receiver) pays the user (sender).
func (t Transaction) Postings() []Posting {
	if t.Status != TxnSuccessful {
		return nil
	}
	if t.Type == TxnCashIn {
		return []Posting{
			{AccountID: t.Receiver.ID, Delta: -t.Debited},
			{AccountID: t.Sender.ID, Delta: t.Credited},
		}
	}
	return []Posting{
		{AccountID: t.Sender.ID, Delta: -t.Debited},
		{AccountID: t.Receiver.ID, Delta: t.Credited},
	}
}

func (t Transaction) Involves(accountID string) bool {
	return t.Sender.ID == accountID || t.Receiver.ID == accountID
}
