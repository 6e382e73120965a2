package board

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
)

func TestTranslateDBErr(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		conflict bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("syntax error"), false},
		{"sqlite busy", errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{"deadlock message", errors.New("Deadlock found when trying to get lock"), true},
		{"mysql deadlock code", &mysql.MySQLError{Number: 1213, Message: "Deadlock found"}, true},
		{"mysql lock timeout code", &mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"}, true},
		{"mysql unrelated code", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, false},
		{"wrapped mysql deadlock", fmt.Errorf("update: %w", &mysql.MySQLError{Number: 1213}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateDBErr(tt.err)
			if tt.err == nil {
				if got != nil {
					t.Fatalf("nil in, %v out", got)
				}
				return
			}
			if errors.Is(got, ErrConflict) != tt.conflict {
				t.Fatalf("conflict = %v, want %v (err %v)", !tt.conflict, tt.conflict, got)
			}
		})
	}
}
