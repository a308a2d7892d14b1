package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/baharkarakas/tpay-mfs/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// mapErr turns driver errors into repository sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return &repository.DuplicateError{Field: constraintField(pgErr.ConstraintName)}
		case "23514": // check_violation
			if pgErr.ConstraintName == "accounts_balance_non_negative" {
				return repository.ErrInsufficientFunds
			}
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return fmt.Errorf("%w: %s", repository.ErrConflict, pgErr.Message)
		}
	}
	return err
}

// accounts_phone_key -> phone
func constraintField(name string) string {
	name = strings.TrimSuffix(name, "_key")
	if i := strings.Index(name, "_"); i >= 0 {
		return name[i+1:]
	}
	return name
}
