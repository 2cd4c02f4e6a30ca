package warehouse

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/snowflakedb/gosnowflake"

	"songplaydw/internal/catalog"
	"songplaydw/pkg/errors"
)

// statementError wraps a driver error with the statement that raised it and
// classifies it by SQLSTATE.
func statementError(stmt catalog.Statement, err error) *errors.AppError {
	appErr := errors.SQLError("Failed to execute "+stmt.Name, stmt.SQL, err).
		WithContext("statement", stmt.Name)
	if stmt.Table != "" {
		appErr.WithContext("table", stmt.Table)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		appErr.Code = errors.ErrCodeSQLTimeout
		appErr.WithSuggestions("Raise cluster.statement_timeout or set it to 0 for no limit")
		return appErr
	case errors.Is(err, context.Canceled):
		appErr.Code = errors.ErrCodeCancelled
		appErr.Severity = errors.SeverityWarning
		return appErr
	}

	state := sqlState(err)
	switch {
	case state == "42601" || state == "42000":
		appErr.Code = errors.ErrCodeSQLSyntax
	case state == "42501":
		appErr.Code = errors.ErrCodeSQLPermission
		appErr.WithSuggestions("Check the grants of the configured database user")
	case state == "42P01" || state == "42704" || state == "42S02" || state == "3F000":
		appErr.Code = errors.ErrCodeSQLObjectNotFound
		appErr.WithSuggestions("Run 'songplaydw create-tables' first")
	case strings.HasPrefix(state, "23"):
		appErr.Code = errors.ErrCodeConstraintViolation
	case state == "57014":
		appErr.Code = errors.ErrCodeSQLTimeout
	case strings.HasPrefix(state, "28"):
		appErr.Code = errors.ErrCodeAuthenticationFailed
	case stmt.Kind == catalog.KindCopy || stmt.Kind == catalog.KindClientCopy:
		appErr.Code = errors.ErrCodeBulkLoadFailed
		if strings.Contains(err.Error(), "stl_load_errors") {
			appErr.WithSuggestions("Inspect stl_load_errors for the rejected rows")
		}
	}

	if state != "" {
		appErr.WithContext("sqlstate", state)
	}
	return appErr
}

// connectError classifies a failure to open or ping the warehouse.
func connectError(cfg Config, err error) *errors.AppError {
	state := sqlState(err)
	if strings.HasPrefix(state, "28") || isSnowflakeAuth(err) {
		return errors.Wrap(err, errors.ErrCodeAuthenticationFailed, "Authentication failed").
			WithContext("user", cfg.Username).
			WithContext("target", cfg.Target()).
			WithSuggestions(
				"Verify cluster.db_user and cluster.db_password",
				"Run 'songplaydw credentials set' to refresh the stored password",
			)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(err, errors.ErrCodeConnectionTimeout, "Timed out connecting to the warehouse").
			WithContext("target", cfg.Target())
	}
	return errors.ConnectionError("Failed to connect to the warehouse", err).
		WithContext("dialect", cfg.Dialect).
		WithContext("target", cfg.Target())
}

func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var sfErr *gosnowflake.SnowflakeError
	if errors.As(err, &sfErr) {
		return sfErr.SQLState
	}
	return ""
}

// Snowflake reports bad credentials as error 390100.
func isSnowflakeAuth(err error) bool {
	var sfErr *gosnowflake.SnowflakeError
	return errors.As(err, &sfErr) && sfErr.Number == 390100
}
