package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/DjordjeVuckovic/sqlconnector/internal/query"
	"github.com/DjordjeVuckovic/sqlconnector/internal/table"
)

const noDataMessage = "No data returned or query failed."

// runSelect executes the profile's select statement and logs the field of
// every returned row.
func runSelect(ctx context.Context, e *query.Executor, p *Profile) error {
	if p.SelectQuery == "" {
		return fmt.Errorf("profile has no selectQuery")
	}

	tbl, err := e.ExecuteQueryAsync(ctx, p.SelectQuery, p.ParamSet()).Wait()
	if err != nil || tbl.IsEmpty() {
		slog.Error(noDataMessage, "error", err)
		return err
	}

	return logField(tbl, p.Field)
}

func logField(tbl *table.Table, field string) error {
	values, err := tbl.Project(field)
	if err != nil {
		slog.Error("Unknown field", "field", field, "columns", tbl.Columns)
		return err
	}
	for _, v := range values {
		slog.Info(fmt.Sprint(v))
	}
	return nil
}

// runNonQuery executes the profile's non-query and logs the outcome message.
func runNonQuery(ctx context.Context, e *query.Executor, p *Profile) error {
	if p.NonQuery == "" {
		return fmt.Errorf("profile has no nonQuery")
	}

	res, err := e.ExecuteNonQueryAsync(ctx, p.NonQuery, p.ParamSet()).Wait()
	msg := query.Describe(res, err)
	if err != nil {
		slog.Error(msg)
		return err
	}
	slog.Info(msg)
	return nil
}
