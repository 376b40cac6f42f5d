package hire

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// Error classes. Callers branch on these with errors.Is.
var (
	ErrNotFound  = errors.New("hire: not found")
	ErrConflict  = errors.New("hire: conflict")
	ErrTransient = errors.New("hire: transient failure, retry")
)

var (
	// ErrBidNotFound is returned when the bid does not exist. It matches ErrNotFound.
	ErrBidNotFound error = &classError{msg: "hire: bid not found", class: ErrNotFound}
	// ErrGigNotFound is returned when the bid's gig does not exist. It matches ErrNotFound.
	ErrGigNotFound error = &classError{msg: "hire: gig not found", class: ErrNotFound}
	// ErrAlreadyAssigned is returned when the gig already has a hire or the
	// hire could not be committed. It matches ErrConflict.
	ErrAlreadyAssigned error = &classError{msg: "hire: gig already assigned", class: ErrConflict}
	// ErrUnauthorized is returned when the actor does not own the gig.
	ErrUnauthorized = errors.New("hire: only the gig owner may hire")
)

type classError struct {
	msg   string
	class error
}

func (e *classError) Error() string { return e.msg }

func (e *classError) Unwrap() error { return e.class }

func isRetryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected, pgerrcode.LockNotAvailable:
			return true
		}
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
