package data

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github.com/b0vik/subgencluster-api-server/internal/errors"
)

// mapPgError translates low-level Postgres errors into application errors.
// Unique violations become Conflict; check and enum violations become
// Validation; everything else is wrapped unchanged.
func mapPgError(err error, op string) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return apperrors.Wrapf(err, apperrors.ErrCodeConflict, "%s: already exists", op)
		case pgerrcode.CheckViolation, pgerrcode.InvalidTextRepresentation:
			return apperrors.Wrapf(err, apperrors.ErrCodeValidation, "%s: constraint violated", op)
		case pgerrcode.ForeignKeyViolation:
			return apperrors.Wrapf(err, apperrors.ErrCodeValidation, "%s: referenced row missing", op)
		}
	}

	return fmt.Errorf("%s: %w", op, err)
}
