package board

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// Sentinel errors, checked by callers with errors.Is. The HTTP layer maps
// them to 404, 400 and 409 respectively.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("write conflict")
)

// MySQL error numbers that indicate a lost race rather than a broken
// request.
const (
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
)

// conflictPatterns cover drivers without typed errors, sqlite in particular.
var conflictPatterns = []string{
	"deadlock",
	"lock wait timeout",
	"database is locked",
	"database table is locked",
	"serialization failure",
}

// translateDBErr maps driver-level lock and serialization failures to
// ErrConflict; other errors pass through unchanged. The whole operation
// should be retried from a fresh read.
func translateDBErr(err error) error {
	if err == nil {
		return nil
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		if myErr.Number == mysqlErrDeadlock || myErr.Number == mysqlErrLockWaitTimeout {
			return fmt.Errorf("board: %v: %w", err, ErrConflict)
		}
	}

	msg := strings.ToLower(err.Error())
	for _, pat := range conflictPatterns {
		if strings.Contains(msg, pat) {
			return fmt.Errorf("board: %v: %w", err, ErrConflict)
		}
	}
	return err
}
