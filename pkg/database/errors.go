package database

import (
	"strings"

	"github.com/lib/pq"
	"github.com/pharmaconnect/stock-analytics/pkg/errors"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error.
func MapPQError(err error) *errors.AppError {
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return nil
	}

	switch pqErr.Code {
	// Unique constraint violation (23505)
	case "23505":
		return mapUniqueConstraint(pqErr)

	// Check constraint violation (23514)
	case "23514":
		return mapCheckConstraint(pqErr)

	// Foreign key violation (23503)
	case "23503":
		return errors.BadRequest("referenced record does not exist")

	// Not null violation (23502)
	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	default:
		return nil
	}
}

// mapUniqueConstraint maps uniqueness violations onto the engine's duplicate
// error kinds so callers can distinguish period-key duplicates.
func mapUniqueConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "consumption_records_week_key"):
		return errors.Duplicate("consumption record for this week")
	case strings.Contains(constraint, "stock_batches_batch_number_key"):
		return errors.Duplicate("batch number")
	case strings.Contains(constraint, "physical_counts_month_key"):
		return errors.Duplicate("physical count for this month")
	case strings.Contains(constraint, "stockout_periods_open_key"):
		return errors.Conflict("an open stockout period already exists for this medication")
	default:
		return errors.Duplicate("record")
	}
}

// mapCheckConstraint maps CHECK constraint names to user-friendly messages.
func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "week_number_range"):
		return errors.Validation(map[string]string{
			"week_number": "must be between 1 and 53",
		})
	case strings.Contains(constraint, "quantity_non_negative"):
		return errors.Validation(map[string]string{
			"quantity": "must not be negative",
		})
	default:
		return errors.Validation(map[string]string{
			"input": "violates constraint " + constraint,
		})
	}
}
