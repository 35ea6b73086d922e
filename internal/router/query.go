package router

import (
	"math"
	"net/http"
	"strings"

	"github.com/DjordjeVuckovic/sqlconnector/internal/apperr"
	"github.com/DjordjeVuckovic/sqlconnector/internal/metrics"
	"github.com/DjordjeVuckovic/sqlconnector/internal/param"
	"github.com/DjordjeVuckovic/sqlconnector/internal/query"
	"github.com/DjordjeVuckovic/sqlconnector/internal/storage"
	"github.com/DjordjeVuckovic/sqlconnector/internal/table"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type StatementRequest struct {
	Query  string    `json:"query"`
	Params param.Set `json:"params"`
	// Field projects the result onto one column.
	Field string `json:"field,omitempty"`
}

type QueryResponse struct {
	ExecutionID uuid.UUID      `json:"executionId"`
	Columns     []table.Column `json:"columns,omitempty"`
	Rows        []table.Row    `json:"rows,omitempty"`
	Count       int            `json:"count"`
	Values      []any          `json:"values,omitempty"`
}

type ExecResponse struct {
	ExecutionID  uuid.UUID `json:"executionId"`
	RowsAffected int64     `json:"rowsAffected"`
	Message      string    `json:"message"`
}

type QueryRouter struct {
	e       *echo.Echo
	src     query.Source
	exec    *storage.ExecOptions
	metrics *metrics.Collector
}

type QueryRouterOption func(*QueryRouter)

func WithExecOptions(opts *storage.ExecOptions) QueryRouterOption {
	return func(r *QueryRouter) {
		r.exec = opts
	}
}

func WithMetrics(c *metrics.Collector) QueryRouterOption {
	return func(r *QueryRouter) {
		r.metrics = c
	}
}

func NewQueryRouter(e *echo.Echo, src query.Source, opts ...QueryRouterOption) *QueryRouter {
	r := &QueryRouter{
		e:   e,
		src: src,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *QueryRouter) Bind() {
	r.e.POST("/query", r.queryHandler)
	r.e.POST("/exec", r.execHandler)
}

// executor returns a fresh Executor so LastError never leaks across requests.
func (r *QueryRouter) executor() *query.Executor {
	return query.New(r.src, query.WithExecOptions(r.exec), query.WithMetrics(r.metrics))
}

func (r *QueryRouter) queryHandler(c echo.Context) error {
	req, err := bindStatement(c)
	if err != nil {
		return err
	}

	id := uuid.New()
	ctx := query.WithExecutionID(c.Request().Context(), id)

	tbl, err := r.executor().ExecuteQuery(ctx, req.Query, req.Params)
	if err != nil {
		return err
	}

	resp := QueryResponse{ExecutionID: id, Count: tbl.Len()}
	if req.Field != "" {
		values, err := tbl.Project(req.Field)
		if err != nil {
			return apperr.NewValidationWrap("unknown field "+req.Field, err)
		}
		resp.Values = values
	} else {
		resp.Columns = tbl.Columns
		resp.Rows = tbl.Rows
	}

	return c.JSON(http.StatusOK, resp)
}

func (r *QueryRouter) execHandler(c echo.Context) error {
	req, err := bindStatement(c)
	if err != nil {
		return err
	}

	id := uuid.New()
	ctx := query.WithExecutionID(c.Request().Context(), id)

	res, err := r.executor().ExecuteNonQuery(ctx, req.Query, req.Params)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ExecResponse{
		ExecutionID:  id,
		RowsAffected: res.RowsAffected,
		Message:      res.Message(),
	})
}

func bindStatement(c echo.Context) (*StatementRequest, error) {
	var req StatementRequest
	if err := c.Bind(&req); err != nil {
		return nil, apperr.NewValidationWrap("invalid request body", err)
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, apperr.NewValidation("query is required")
	}
	req.Params = normalizeNumbers(req.Params)
	return &req, nil
}

// normalizeNumbers turns integral JSON numbers back into int64 so integer
// columns are not bound as floats.
func normalizeNumbers(set param.Set) param.Set {
	for name, v := range set {
		f, ok := v.(float64)
		if ok && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			set[name] = int64(f)
		}
	}
	return set
}
