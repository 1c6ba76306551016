package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilsetl/ilsetl/internal/logging"
	"github.com/ilsetl/ilsetl/pkg/ilsetl"
)

func twoRecords() []ilsetl.Record {
	return []ilsetl.Record{
		ilsetl.NewRecord("name", "John", "age", 30),
		ilsetl.NewRecord("name", "Jane", "age", 25),
	}
}

func TestLoad_FetchesAndCommits(t *testing.T) {
	api := &mockQueryRunner{records: twoRecords()}
	stager := &mockStager{}
	svc := NewLoadService(api, factoryFor(stager), logging.NewNullLogger())

	filters := ilsetl.Filters{}.With("county", "POLK")
	result, err := svc.Load(context.Background(), ilsetl.LoadConfig{Table: "test_table", Filters: filters, Limit: 50, AllPages: true}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, api.calls)
	assert.Equal(t, 2, api.optLen)
	assert.Equal(t, filters, api.filters)

	assert.Equal(t, "test_table", result.Table)
	assert.Equal(t, 2, result.Fetched)
	assert.Equal(t, int64(2), result.Loaded)
	assert.True(t, result.Committed)
	assert.Equal(t, []string{"autocommit=false", "load test_table 2", "commit", "close"}, stager.log)
}

func TestLoad_UsesGivenRecords(t *testing.T) {
	api := &mockQueryRunner{}
	stager := &mockStager{}
	svc := NewLoadService(api, factoryFor(stager), logging.NewNullLogger())

	_, err := svc.Load(context.Background(), ilsetl.LoadConfig{Table: "t"}, twoRecords())
	require.NoError(t, err)
	assert.Zero(t, api.calls)
}

func TestLoad_NoRecords(t *testing.T) {
	opened := false
	svc := NewLoadService(&mockQueryRunner{records: []ilsetl.Record{}}, func(context.Context) (Stager, error) {
		opened = true
		return &mockStager{}, nil
	}, logging.NewNullLogger())

	_, err := svc.Load(context.Background(), ilsetl.LoadConfig{Table: "t"}, nil)
	assert.ErrorIs(t, err, ilsetl.ErrNoRecords)
	assert.False(t, opened)
}

func TestLoad_PostSQLRunsBeforeCommit(t *testing.T) {
	stager := &mockStager{}
	logger := logging.NewMemoryLogger()
	svc := NewLoadService(&mockQueryRunner{}, factoryFor(stager), logger)

	cfg := ilsetl.LoadConfig{Table: "t", PostSQL: "INSERT INTO sales SELECT * FROM t", Autocommit: true}
	result, err := svc.Load(context.Background(), cfg, twoRecords())
	require.NoError(t, err)
	assert.Len(t, result.PostSQLChecksum, 64)
	assert.True(t, logger.Contains(logging.LevelVerbose, "Running post-load SQL (checksum "+result.PostSQLChecksum[:12]+")"))

	assert.Equal(t, []string{
		"autocommit=true",
		"load t 2",
		"exec INSERT INTO sales SELECT * FROM t",
		"commit",
		"close",
	}, stager.log)
}

func TestLoad_DryRunRollsBack(t *testing.T) {
	stager := &mockStager{}
	logger := logging.NewMemoryLogger()
	svc := NewLoadService(&mockQueryRunner{}, factoryFor(stager), logger)

	result, err := svc.Load(context.Background(), ilsetl.LoadConfig{Table: "t", DryRun: true}, twoRecords())
	require.NoError(t, err)

	assert.False(t, result.Committed)
	assert.True(t, logger.Contains(logging.LevelInfo, "Dry run: rolled back 2 staged rows"))
	assert.Equal(t, []string{"autocommit=false", "load t 2", "rollback", "close"}, stager.log)
}

func TestLoad_Preview(t *testing.T) {
	stager := &mockStager{columns: []string{"name", "age"}, rows: []ilsetl.Row{{"John", "30"}}}
	svc := NewLoadService(&mockQueryRunner{}, factoryFor(stager), logging.NewNullLogger())

	result, err := svc.Load(context.Background(), ilsetl.LoadConfig{Table: "test_table", Preview: 5}, twoRecords())
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "age"}, result.Columns)
	assert.Equal(t, []ilsetl.Row{{"John", "30"}}, result.Preview)
	assert.Contains(t, stager.log, `query SELECT * FROM "test_table" LIMIT 5`)
}

func TestLoad_PreviewColumnsFollowPostSQL(t *testing.T) {
	stager := &mockStager{
		columns: []string{"name", "age", "loaded_at"},
		rows:    []ilsetl.Row{{"John", "30", "2024-05-01"}},
	}
	svc := NewLoadService(&mockQueryRunner{}, factoryFor(stager), logging.NewNullLogger())

	cfg := ilsetl.LoadConfig{
		Table:   "test_table",
		PostSQL: "ALTER TABLE test_table ADD COLUMN loaded_at TEXT DEFAULT '2024-05-01'",
		Preview: 1,
	}
	result, err := svc.Load(context.Background(), cfg, twoRecords())
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "age", "loaded_at"}, result.Columns)
	assert.Len(t, result.Preview[0], len(result.Columns))
}

func TestLoad_TableNameFolded(t *testing.T) {
	stager := &mockStager{}
	svc := NewLoadService(&mockQueryRunner{}, factoryFor(stager), logging.NewNullLogger())

	result, err := svc.Load(context.Background(), ilsetl.LoadConfig{Table: "Staging_Sales", Preview: 1}, twoRecords())
	require.NoError(t, err)

	assert.Equal(t, "staging_sales", result.Table)
	assert.Contains(t, stager.log, `query SELECT * FROM "staging_sales" LIMIT 1`)
}

func TestLoad_FailureRollsBack(t *testing.T) {
	boom := errors.New("boom")
	stager := &mockStager{execErr: boom}
	svc := NewLoadService(&mockQueryRunner{}, factoryFor(stager), logging.NewNullLogger())

	_, err := svc.Load(context.Background(), ilsetl.LoadConfig{Table: "t", PostSQL: "bad"}, twoRecords())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"autocommit=false", "load t 2", "exec bad", "rollback", "close"}, stager.log)
}

func TestLoad_FetchErrorPropagates(t *testing.T) {
	svc := NewLoadService(&mockQueryRunner{err: ilsetl.ErrUnauthorized}, factoryFor(&mockStager{}), logging.NewNullLogger())

	_, err := svc.Load(context.Background(), ilsetl.LoadConfig{Table: "t"}, nil)
	assert.ErrorIs(t, err, ilsetl.ErrUnauthorized)
}

func TestLoad_OpenErrorPropagates(t *testing.T) {
	svc := NewLoadService(&mockQueryRunner{}, func(context.Context) (Stager, error) {
		return nil, ilsetl.ErrConnectionFailed
	}, logging.NewNullLogger())

	_, err := svc.Load(context.Background(), ilsetl.LoadConfig{Table: "t"}, twoRecords())
	assert.ErrorIs(t, err, ilsetl.ErrConnectionFailed)
}

func TestLoad_InvalidConfig(t *testing.T) {
	svc := NewLoadService(&mockQueryRunner{}, factoryFor(&mockStager{}), logging.NewNullLogger())

	_, err := svc.Load(context.Background(), ilsetl.LoadConfig{}, twoRecords())
	assert.ErrorIs(t, err, ilsetl.ErrInvalidConfig)
}

func TestNewLoadService_PanicsOnNil(t *testing.T) {
	logger := logging.NewNullLogger()
	factory := factoryFor(&mockStager{})

	assert.Panics(t, func() { NewLoadService(nil, factory, logger) })
	assert.Panics(t, func() { NewLoadService(&mockQueryRunner{}, nil, logger) })
	assert.Panics(t, func() { NewLoadService(&mockQueryRunner{}, factory, nil) })
}
