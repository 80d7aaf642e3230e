package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/charlesng35/signup/internal/registration"
)

var (
	// ErrAccountExists indicates an account already uses the identifier.
	ErrAccountExists = fmt.Errorf("user service: %w", registration.ErrAccountExists)
	// ErrFlowNotFound indicates the registration flow is no longer stored.
	ErrFlowNotFound = fmt.Errorf("flow repository: %w", registration.ErrFlowNotFound)
)

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique constraint") ||
		strings.Contains(lower, "duplicate")
}
