package postgres

import (
	"context"
	"errors"

	"github.com/baharkarakas/tpay-mfs/internal/models"
	"github.com/baharkarakas/tpay-mfs/internal/repository"
	"github.com/google/uuid"
)

type accountsRepo struct{ q querier }

const accountCols = `id, name, phone, email, password_hash, role, status, balance, opening_balance, version, created_at, updated_at`

func scanAccount(row scanner) (models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Name, &a.Phone, &a.Email, &a.PasswordHash, &a.Role, &a.Status,
		&a.Balance, &a.OpeningBalance, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	return a, mapErr(err)
}

func (r *accountsRepo) Create(ctx context.Context, a models.Account) (models.Account, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	row := r.q.QueryRow(ctx,
		`INSERT INTO accounts(id, name, phone, email, password_hash, role, status, balance, opening_balance)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$8)
		 RETURNING `+accountCols,
		a.ID, a.Name, a.Phone, a.Email, a.PasswordHash, a.Role, a.Status, a.Balance,
	)
	return scanAccount(row)
}

func (r *accountsRepo) GetByID(ctx context.Context, id string) (models.Account, error) {
	if uuid.Validate(id) != nil {
		return models.Account{}, repository.ErrNotFound
	}
	return scanAccount(r.q.QueryRow(ctx, `SELECT `+accountCols+` FROM accounts WHERE id=$1`, id))
}

func (r *accountsRepo) GetByPhone(ctx context.Context, phone string) (models.Account, error) {
	return scanAccount(r.q.QueryRow(ctx, `SELECT `+accountCols+` FROM accounts WHERE phone=$1`, phone))
}

func (r *accountsRepo) GetByEmailOrPhone(ctx context.Context, identifier string) (models.Account, error) {
	return scanAccount(r.q.QueryRow(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE email=lower($1) OR phone=$1 LIMIT 1`, identifier))
}

func (r *accountsRepo) List(ctx context.Context, limit, offset int) ([]models.Account, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+accountCols+` FROM accounts ORDER BY created_at, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, mapErr(rows.Err())
}

func (r *accountsRepo) ApplyBalanceDelta(ctx context.Context, id string, delta models.Amount, expectedVersion int64) (models.Account, error) {
	a, err := scanAccount(r.q.QueryRow(ctx,
		`UPDATE accounts
		    SET balance = balance + $2,
		        version = version + 1,
		        updated_at = now()
		  WHERE id = $1
		    AND balance + $2 >= 0
		    AND ($3::bigint = 0 OR version = $3::bigint)
		  RETURNING `+accountCols,
		id, delta, expectedVersion,
	))
	if !errors.Is(err, repository.ErrNotFound) {
		return a, err
	}

	// nothing matched: find out which guard rejected the write
	cur, err := r.GetByID(ctx, id)
	if err != nil {
		return models.Account{}, err
	}
	if expectedVersion != repository.AnyVersion && cur.Version != expectedVersion {
		return models.Account{}, repository.ErrConflict
	}
	return models.Account{}, repository.ErrInsufficientFunds
}

func (r *accountsRepo) SetStatus(ctx context.Context, id string, status models.AccountStatus) (models.Account, error) {
	return scanAccount(r.q.QueryRow(ctx,
		`UPDATE accounts SET status=$2, version = version + 1, updated_at=now() WHERE id=$1 RETURNING `+accountCols,
		id, status,
	))
}
