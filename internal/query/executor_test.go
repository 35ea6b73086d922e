package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DjordjeVuckovic/sqlconnector/internal/apperr"
	"github.com/DjordjeVuckovic/sqlconnector/internal/connection"
	"github.com/DjordjeVuckovic/sqlconnector/internal/metrics"
	"github.com/DjordjeVuckovic/sqlconnector/internal/param"
	"github.com/DjordjeVuckovic/sqlconnector/internal/storage"
	"github.com/DjordjeVuckovic/sqlconnector/internal/storage/storagetest"
	"github.com/DjordjeVuckovic/sqlconnector/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExecutor(t *testing.T, drv *storagetest.Driver, opts ...Option) *Executor {
	t.Helper()
	d, err := connection.FromFields(connection.Fields{Host: "db", Port: "1433", Database: "game", User: "sa", Password: "pw"})
	require.NoError(t, err)
	return New(connection.New(drv, d), opts...)
}

func assertBalanced(t *testing.T, drv *storagetest.Driver, want int) {
	t.Helper()
	opens, closes := drv.Counts()
	assert.Equal(t, want, opens, "opens")
	assert.Equal(t, want, closes, "closes")
}

func TestExecuteQuery_ReturnsRows(t *testing.T) {
	drv := storagetest.NewDriver()
	drv.Result = table.New([]table.Column{{Name: "name", Type: "NVARCHAR"}})
	require.NoError(t, drv.Result.Append("ada"))
	e := newExecutor(t, drv)

	tbl, err := e.ExecuteQuery(context.Background(), "SELECT name FROM players WHERE id = @id", param.Set{"@id": 1})
	require.NoError(t, err)

	names, err := tbl.Project("name")
	require.NoError(t, err)
	assert.Equal(t, []any{"ada"}, names)
	assert.Empty(t, e.LastError())
	assert.Equal(t, "SELECT name FROM players WHERE id = @id", drv.LastQuery())
	assertBalanced(t, drv, 1)
}

func TestExecuteQuery_ZeroRowsIsSuccess(t *testing.T) {
	drv := storagetest.NewDriver()
	e := newExecutor(t, drv)

	tbl, err := e.ExecuteQuery(context.Background(), "SELECT * FROM players WHERE 1 = 0", nil)
	require.NoError(t, err)
	require.NotNil(t, tbl)
	assert.True(t, tbl.IsEmpty())
	assert.Empty(t, e.LastError())
	assertBalanced(t, drv, 1)
}

func TestExecuteQuery_DriverFailure(t *testing.T) {
	drv := storagetest.NewDriver()
	drv.QueryErr = errors.New("Invalid object name 'playerz'.")
	e := newExecutor(t, drv)

	tbl, err := e.ExecuteQuery(context.Background(), "SELECT * FROM playerz", nil)
	require.Error(t, err)
	require.NotNil(t, tbl)
	assert.True(t, tbl.IsEmpty())

	var de *apperr.DatabaseError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, apperr.OpQuery, de.Op)
	assert.Equal(t, "Query failed: Invalid object name 'playerz'.", e.LastError())
	assertBalanced(t, drv, 1)
}

func TestExecuteQuery_ConnectionFailure(t *testing.T) {
	drv := storagetest.NewDriver()
	drv.OpenErr = errors.New("Login failed for user 'sa'.")
	e := newExecutor(t, drv)

	tbl, err := e.ExecuteQuery(context.Background(), "SELECT 1", nil)
	require.Error(t, err)
	assert.True(t, tbl.IsEmpty())
	assert.True(t, apperr.IsConnection(err))
	assert.Equal(t, "Query failed: Login failed for user 'sa'.", e.LastError())
	assertBalanced(t, drv, 0)
}

func TestExecuteQuery_PanicIsUnknownAndReleases(t *testing.T) {
	drv := storagetest.NewDriver()
	drv.PanicOn = "query"
	e := newExecutor(t, drv)

	tbl, err := e.ExecuteQuery(context.Background(), "SELECT 1", nil)
	require.Error(t, err)
	assert.True(t, tbl.IsEmpty())
	assert.True(t, apperr.IsUnknown(err))
	assert.Equal(t, "Query failed: Unknown error - panic: mock: query panic", e.LastError())
	assertBalanced(t, drv, 1)
}

func TestExecuteQuery_BindFailureNeverOpens(t *testing.T) {
	drv := storagetest.NewDriver()
	e := newExecutor(t, drv)

	_, err := e.ExecuteQuery(context.Background(), "SELECT @x", param.Set{"@x": struct{}{}})
	require.Error(t, err)
	assert.True(t, apperr.IsUnknown(err))
	assert.Contains(t, e.LastError(), "Query failed: Unknown error - ")
	assertBalanced(t, drv, 0)
}

func TestExecuteQuery_LastErrorClearedOnSuccess(t *testing.T) {
	drv := storagetest.NewDriver()
	drv.QueryErr = errors.New("deadlock victim")
	e := newExecutor(t, drv)

	_, err := e.ExecuteQuery(context.Background(), "SELECT 1", nil)
	require.Error(t, err)
	require.NotEmpty(t, e.LastError())

	drv.QueryErr = nil
	_, err = e.ExecuteQuery(context.Background(), "SELECT 1", nil)
	require.NoError(t, err)
	assert.Empty(t, e.LastError())
}

func TestExecuteQuery_ParamsRoundTrip(t *testing.T) {
	drv := storagetest.NewDriver()
	drv.EchoParams = true
	e := newExecutor(t, drv)

	set := param.Set{"@param1": "value1", "@level": 12, "@guild": nil}
	tbl, err := e.ExecuteQuery(context.Background(), "SELECT @param1, @level, @guild", set)
	require.NoError(t, err)
	require.Equal(t, len(set), tbl.Len())

	echoed := make(param.Set, tbl.Len())
	for i := range tbl.Rows {
		name, err := tbl.Value(i, "name")
		require.NoError(t, err)
		value, err := tbl.Value(i, "value")
		require.NoError(t, err)
		if value == param.Null {
			value = nil
		}
		echoed[name.(string)] = value
	}
	assert.Equal(t, set, echoed)
}

func TestExecuteNonQuery_ReportsCount(t *testing.T) {
	drv := storagetest.NewDriver()
	drv.RowsAffected = 5
	e := newExecutor(t, drv)

	res, err := e.ExecuteNonQuery(context.Background(), "UPDATE players SET level = level + 1 WHERE guild = @guild", param.Set{"@guild": "red"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.RowsAffected)
	assert.Equal(t, "Execution successful, affected rows: 5", res.Message())
	assert.Equal(t, "Execution successful, affected rows: 5", Describe(res, err))
	assert.Empty(t, e.LastError())
	assertBalanced(t, drv, 1)
}

func TestExecuteNonQuery_ZeroRowsIsSuccess(t *testing.T) {
	drv := storagetest.NewDriver()
	e := newExecutor(t, drv)

	res, err := e.ExecuteNonQuery(context.Background(), "DELETE FROM players WHERE id = @id", param.Set{"@id": -1})
	require.NoError(t, err)
	assert.Zero(t, res.RowsAffected)
	assert.Equal(t, "Execution successful, affected rows: 0", res.Message())
}

func TestExecuteNonQuery_DriverFailure(t *testing.T) {
	drv := storagetest.NewDriver()
	drv.ExecErr = apperr.NewDatabase(apperr.OpExecute, "2627", "Violation of PRIMARY KEY constraint", nil)
	e := newExecutor(t, drv)

	_, err := e.ExecuteNonQuery(context.Background(), "INSERT INTO players (id) VALUES (@id)", param.Set{"@id": 1})
	require.Error(t, err)

	var de *apperr.DatabaseError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "2627", de.Code)
	assert.Equal(t, "Execution failed: Violation of PRIMARY KEY constraint", e.LastError())
	assert.Equal(t, e.LastError(), Describe(ExecResult{}, err))
	assertBalanced(t, drv, 1)
}

func TestExecuteNonQuery_PanicIsUnknown(t *testing.T) {
	drv := storagetest.NewDriver()
	drv.PanicOn = "execute"
	e := newExecutor(t, drv)

	_, err := e.ExecuteNonQuery(context.Background(), "DELETE FROM players", nil)
	require.Error(t, err)
	assert.True(t, apperr.IsUnknown(err))
	assert.Equal(t, "Execution failed: Unknown error - panic: mock: exec panic", e.LastError())
	assertBalanced(t, drv, 1)
}

func TestExecute_TimeoutAbortsAndReleases(t *testing.T) {
	drv := storagetest.NewDriver()
	drv.Block = make(chan struct{})
	defer close(drv.Block)
	e := newExecutor(t, drv, WithTimeout(20*time.Millisecond))

	_, err := e.ExecuteQuery(context.Background(), "WAITFOR DELAY '00:01'", nil)
	require.Error(t, err)
	assert.True(t, apperr.IsDatabase(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assertBalanced(t, drv, 1)
}

func TestExecute_CancelledContextReleases(t *testing.T) {
	drv := storagetest.NewDriver()
	drv.Block = make(chan struct{})
	defer close(drv.Block)
	e := newExecutor(t, drv)

	ctx, cancel := context.WithCancel(context.Background())
	fut := e.ExecuteNonQueryAsync(ctx, "UPDATE players SET level = 1", nil)
	cancel()

	_, err := fut.Wait()
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	// cancel may land before or after the session is opened
	opens, closes := drv.Counts()
	assert.Equal(t, opens, closes)
}

func TestWithExecOptions(t *testing.T) {
	e := New(connection.NewHeld(nil), WithExecOptions(&storage.ExecOptions{TimeoutSeconds: 3}))
	assert.Equal(t, 3*time.Second, e.timeout)

	e = New(connection.NewHeld(nil), WithExecOptions(nil))
	assert.Zero(t, e.timeout)
}

func TestExecute_HeldConnectionIsNotClosed(t *testing.T) {
	drv := storagetest.NewDriver()
	conn, err := drv.Open(context.Background(), "dsn")
	require.NoError(t, err)

	e := New(connection.NewHeld(conn))
	_, err = e.ExecuteQuery(context.Background(), "SELECT 1", nil)
	require.NoError(t, err)
	_, err = e.ExecuteNonQuery(context.Background(), "UPDATE t SET x = 1", nil)
	require.NoError(t, err)

	assert.False(t, conn.Closed())
	opens, closes := drv.Counts()
	assert.Equal(t, 1, opens)
	assert.Zero(t, closes)
}

func TestExecute_RecordsMetrics(t *testing.T) {
	drv := storagetest.NewDriver()
	c := metrics.NewCollector("mock")
	e := newExecutor(t, drv, WithMetrics(c))

	_, _ = e.ExecuteQuery(context.Background(), "SELECT 1", nil)
	drv.ExecErr = errors.New("constraint violation")
	_, _ = e.ExecuteNonQuery(context.Background(), "DELETE FROM t", nil)

	assert.Equal(t, uint64(1), c.Executions("query", metrics.OutcomeSuccess))
	assert.Equal(t, uint64(1), c.Executions("execute", metrics.OutcomeDatabase))
}

func TestFailureMessage(t *testing.T) {
	assert.Empty(t, FailureMessage(apperr.OpQuery, nil))
	assert.Equal(t, "Execution failed: Unknown error - boom",
		FailureMessage(apperr.OpExecute, errors.New("boom")))
	assert.Equal(t, "Execution failed: timeout expired",
		FailureMessage(apperr.OpExecute, apperr.NewDatabase(apperr.OpExecute, "", "timeout expired", nil)))
	assert.Equal(t, "Query failed: Unknown error - nil pointer",
		FailureMessage(apperr.OpQuery, apperr.NewUnknown("nil pointer")))
}
