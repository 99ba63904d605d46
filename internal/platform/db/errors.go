package db

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/odyssey-erp/commerce-admin/internal/shared"
)

// Postgres SQLSTATE codes translated into shared.IntegrityError.
const (
	codeUniqueViolation     = "23505"
	codeNotNullViolation    = "23502"
	codeForeignKeyViolation = "23503"
)

var detailKey = regexp.MustCompile(`Key \(([^)]+)\)=`)

// TranslateError maps driver errors onto the shared error taxonomy.
// Unknown errors are returned unchanged.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %v", shared.ErrNotFound, err)
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeUniqueViolation:
		field := keyField(pgErr)
		msg := pgErr.Detail
		if msg == "" {
			msg = pgErr.Message
		}
		return &shared.IntegrityError{Field: field, Message: msg, Err: err}
	case codeNotNullViolation:
		return &shared.IntegrityError{
			Field:   pgErr.ColumnName,
			Message: fmt.Sprintf("The %s field is required and cannot be null", pgErr.ColumnName),
			Err:     err,
		}
	case codeForeignKeyViolation:
		return &shared.IntegrityError{Field: keyField(pgErr), Message: "Data integrity violations: " + pgErr.Detail, Err: err}
	default:
		return err
	}
}

func keyField(pgErr *pgconn.PgError) string {
	if pgErr.ColumnName != "" {
		return pgErr.ColumnName
	}
	if m := detailKey.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
		return m[1]
	}
	return ""
}
