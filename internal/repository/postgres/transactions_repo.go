package postgres

import (
	"context"

	"github.com/baharkarakas/tpay-mfs/internal/models"
	"github.com/baharkarakas/tpay-mfs/internal/repository"
	"github.com/google/uuid"
)

type transactionsRepo struct{ q querier }

const txnCols = `id, type, amount, fee, debited, credited, status,
  sender_id, sender_name, sender_phone, sender_role,
  receiver_id, receiver_name, receiver_phone, receiver_role,
  reason, idempotency_key, settles_id, created_at`

func scanTxn(row scanner) (models.Transaction, error) {
	var (
		tx         models.Transaction
		receiverID *string
	)
	err := row.Scan(&tx.ID, &tx.Type, &tx.Amount, &tx.Fee, &tx.Debited, &tx.Credited, &tx.Status,
		&tx.Sender.ID, &tx.Sender.Name, &tx.Sender.Phone, &tx.Sender.Role,
		&receiverID, &tx.Receiver.Name, &tx.Receiver.Phone, &tx.Receiver.Role,
		&tx.Reason, &tx.IdempotencyKey, &tx.SettlesID, &tx.CreatedAt)
	if receiverID != nil {
		tx.Receiver.ID = *receiverID
	}
	return tx, mapErr(err)
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *transactionsRepo) Create(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	row := r.q.QueryRow(ctx, `
INSERT INTO transactions (
  id, type, amount, fee, debited, credited, status,
  sender_id, sender_name, sender_phone, sender_role,
  receiver_id, receiver_name, receiver_phone, receiver_role,
  reason, idempotency_key, settles_id
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
RETURNING `+txnCols,
		tx.ID, tx.Type, tx.Amount, tx.Fee, tx.Debited, tx.Credited, tx.Status,
		tx.Sender.ID, tx.Sender.Name, tx.Sender.Phone, tx.Sender.Role,
		nullIfEmpty(tx.Receiver.ID), tx.Receiver.Name, tx.Receiver.Phone, tx.Receiver.Role,
		tx.Reason, tx.IdempotencyKey, tx.SettlesID,
	)
	return scanTxn(row)
}

func (r *transactionsRepo) GetByID(ctx context.Context, id string) (models.Transaction, error) {
	if uuid.Validate(id) != nil {
		return models.Transaction{}, repository.ErrNotFound
	}
	return scanTxn(r.q.QueryRow(ctx, `SELECT `+txnCols+` FROM transactions WHERE id=$1`, id))
}

func (r *transactionsRepo) GetByIdempotencyKey(ctx context.Context, key string) (models.Transaction, error) {
	return scanTxn(r.q.QueryRow(ctx, `SELECT `+txnCols+` FROM transactions WHERE idempotency_key=$1`, key))
}

func (r *transactionsRepo) GetSettlement(ctx context.Context, pendingID string) (models.Transaction, error) {
	if uuid.Validate(pendingID) != nil {
		return models.Transaction{}, repository.ErrNotFound
	}
	return scanTxn(r.q.QueryRow(ctx, `SELECT `+txnCols+` FROM transactions WHERE settles_id=$1`, pendingID))
}

func (r *transactionsRepo) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]models.Transaction, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+txnCols+`
		   FROM transactions
		  WHERE sender_id=$1 OR receiver_id=$1
		  ORDER BY created_at DESC, id
		  LIMIT $2 OFFSET $3`,
		accountID, limit, offset,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		tx, err := scanTxn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, mapErr(rows.Err())
}
