package router

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DjordjeVuckovic/sqlconnector/internal/apperr"
	"github.com/DjordjeVuckovic/sqlconnector/internal/connection"
	"github.com/DjordjeVuckovic/sqlconnector/internal/metrics"
	"github.com/DjordjeVuckovic/sqlconnector/internal/param"
	"github.com/DjordjeVuckovic/sqlconnector/internal/storage/storagetest"
	"github.com/DjordjeVuckovic/sqlconnector/internal/table"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(drv *storagetest.Driver, opts ...QueryRouterOption) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = apperr.GlobalErrorHandler()
	NewQueryRouter(e, connection.New(drv, connection.FromString("Server=db,1433;Database=game;")), opts...).Bind()
	return e
}

func post(e *echo.Echo, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func playersTable(t *testing.T) *table.Table {
	t.Helper()
	tbl := table.New([]table.Column{{Name: "id", Type: "INT"}, {Name: "name", Type: "NVARCHAR"}})
	require.NoError(t, tbl.Append(int64(1), "ada"))
	require.NoError(t, tbl.Append(int64(2), "linus"))
	return tbl
}

func TestQueryHandler_ReturnsTable(t *testing.T) {
	drv := storagetest.NewDriver()
	drv.Result = playersTable(t)
	e := newTestRouter(drv)

	rec := post(e, "/query", `{"query":"SELECT id, name FROM players WHERE guild = @guild","params":{"@guild":"red"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ExecutionID)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, []table.Column{{Name: "id", Type: "INT"}, {Name: "name", Type: "NVARCHAR"}}, resp.Columns)
	assert.Len(t, resp.Rows, 2)
	assert.Equal(t, []param.Param{{Name: "@guild", Value: "red"}}, drv.LastParams())

	opens, closes := drv.Counts()
	assert.Equal(t, 1, opens)
	assert.Equal(t, 1, closes)
}

func TestQueryHandler_ProjectsField(t *testing.T) {
	drv := storagetest.NewDriver()
	drv.Result = playersTable(t)
	e := newTestRouter(drv)

	rec := post(e, "/query", `{"query":"SELECT id, name FROM players","field":"name"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []any{"ada", "linus"}, resp.Values)
	assert.Empty(t, resp.Rows)
}

func TestQueryHandler_UnknownField(t *testing.T) {
	drv := storagetest.NewDriver()
	drv.Result = playersTable(t)
	e := newTestRouter(drv)

	rec := post(e, "/query", `{"query":"SELECT id, name FROM players","field":"level"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryHandler_NumbersBindAsIntegers(t *testing.T) {
	drv := storagetest.NewDriver()
	e := newTestRouter(drv)

	rec := post(e, "/query", `{"query":"SELECT * FROM players WHERE id = @id AND score > @score","params":{"@id":7,"@score":1.5}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []param.Param{
		{Name: "@id", Value: int64(7)},
		{Name: "@score", Value: 1.5},
	}, drv.LastParams())
}

func TestQueryHandler_NullParam(t *testing.T) {
	drv := storagetest.NewDriver()
	e := newTestRouter(drv)

	rec := post(e, "/query", `{"query":"SELECT * FROM players WHERE guild = @guild","params":{"@guild":null}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []param.Param{{Name: "@guild", Value: param.Null}}, drv.LastParams())
}

func TestHandlers_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(d *storagetest.Driver)
		path   string
		body   string
		status int
	}{
		{
			name:   "missing query",
			setup:  func(d *storagetest.Driver) {},
			path:   "/query",
			body:   `{"params":{}}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "malformed body",
			setup:  func(d *storagetest.Driver) {},
			path:   "/exec",
			body:   `{"query":`,
			status: http.StatusBadRequest,
		},
		{
			name:   "connection failure",
			setup:  func(d *storagetest.Driver) { d.OpenErr = errors.New("Login failed for user 'sa'.") },
			path:   "/query",
			body:   `{"query":"SELECT 1"}`,
			status: http.StatusServiceUnavailable,
		},
		{
			name: "database failure",
			setup: func(d *storagetest.Driver) {
				d.ExecErr = apperr.NewDatabase(apperr.OpExecute, "2627", "Violation of PRIMARY KEY constraint", nil)
			},
			path:   "/exec",
			body:   `{"query":"INSERT INTO players (id) VALUES (@id)","params":{"@id":1}}`,
			status: http.StatusUnprocessableEntity,
		},
		{
			name:   "unsupported param type",
			setup:  func(d *storagetest.Driver) {},
			path:   "/query",
			body:   `{"query":"SELECT @x","params":{"@x":{"nested":true}}}`,
			status: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drv := storagetest.NewDriver()
			tt.setup(drv)
			e := newTestRouter(drv)

			rec := post(e, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)

			opens, closes := drv.Counts()
			assert.Equal(t, opens, closes)
		})
	}
}

func TestExecHandler(t *testing.T) {
	drv := storagetest.NewDriver()
	drv.RowsAffected = 5
	c := metrics.NewCollector("mock")
	e := newTestRouter(drv, WithMetrics(c))

	rec := post(e, "/exec", `{"query":"UPDATE players SET level = level + 1 WHERE guild = @guild","params":{"@guild":"red"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ExecResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(5), resp.RowsAffected)
	assert.Equal(t, "Execution successful, affected rows: 5", resp.Message)
	assert.Equal(t, uint64(1), c.Executions("execute", metrics.OutcomeSuccess))
}
