package reservation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/nekogravitycat/campus-rental-backend/internal/resource"
)

func TestTranslateError(t *testing.T) {
	pgErr := func(code, constraint string) error {
		return fmt.Errorf("insert reservation resource failed: %w", &pgconn.PgError{Code: code, ConstraintName: constraint})
	}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"exclusion violation", pgErr(pgerrcode.ExclusionViolation, "reservation_resources_no_overlap"), ErrConflict},
		{"serialization failure", pgErr(pgerrcode.SerializationFailure, ""), ErrTransient},
		{"deadlock", pgErr(pgerrcode.DeadlockDetected, ""), ErrTransient},
		{"lock timeout", pgErr(pgerrcode.LockNotAvailable, ""), ErrTransient},
		{"statement canceled", pgErr(pgerrcode.QueryCanceled, ""), ErrTransient},
		{"unknown requester", pgErr(pgerrcode.ForeignKeyViolation, "reservations_requester_id_fkey"), ErrRequesterNotFound},
		{"unknown resource", pgErr(pgerrcode.ForeignKeyViolation, "reservation_resources_resource_id_fkey"), resource.ErrNotFound},
		{"deadline exceeded", fmt.Errorf("lock resources failed: %w", context.DeadlineExceeded), ErrTransient},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := translateError(tc.err)
			assert.ErrorIs(t, got, tc.want)
			// The storage error stays reachable for logging
			assert.ErrorIs(t, got, tc.err)
		})
	}
}

func TestTranslateError_PassesThrough(t *testing.T) {
	detailed := ErrConflict.WithDetails(map[string]any{"conflicts": []ConflictDetail{{ResourceID: "cam-1"}}})
	assert.Same(t, detailed, translateError(detailed))
	assert.Same(t, ErrInvalidTransition, translateError(ErrInvalidTransition))

	plain := errors.New("connection reset")
	assert.Same(t, plain, translateError(plain))

	unmapped := &pgconn.PgError{Code: pgerrcode.UniqueViolation}
	assert.Equal(t, error(unmapped), translateError(unmapped))
}
