package query

import (
	"fmt"

	"github.com/DjordjeVuckovic/sqlconnector/internal/apperr"
)

// ExecResult is the outcome of a successful write statement.
type ExecResult struct {
	RowsAffected int64 `json:"rowsAffected"`
}

// Message is display text only; branch on the returned error instead.
func (r ExecResult) Message() string {
	return fmt.Sprintf("Execution successful, affected rows: %d", r.RowsAffected)
}

// FailureMessage renders err the way LastError reports it:
//
//	Query failed: <driver message>
//	Execution failed: Unknown error - <message>
func FailureMessage(op apperr.Op, err error) string {
	if err == nil {
		return ""
	}
	prefix := "Execution failed"
	if op == apperr.OpQuery {
		prefix = "Query failed"
	}
	if apperr.IsClassified(err) && !apperr.IsUnknown(err) {
		return fmt.Sprintf("%s: %s", prefix, apperr.Message(err))
	}
	return fmt.Sprintf("%s: Unknown error - %s", prefix, apperr.Message(err))
}

// Describe returns the display message for a write call's outcome.
func Describe(res ExecResult, err error) string {
	if err != nil {
		return FailureMessage(apperr.OpExecute, err)
	}
	return res.Message()
}
