package services

import (
	"context"
	"fmt"

	"github.com/ilsetl/ilsetl/internal/sales"
	"github.com/ilsetl/ilsetl/pkg/ilsetl"
)

type mockQueryRunner struct {
	records []ilsetl.Record
	err     error
	calls   int
	optLen  int
	filters ilsetl.Filters
}

func (m *mockQueryRunner) Query(_ context.Context, filters ilsetl.Filters, opts ...sales.QueryOption) ([]ilsetl.Record, error) {
	m.calls++
	m.optLen = len(opts)
	m.filters = filters
	return m.records, m.err
}

// mockStager records each call in log.
type mockStager struct {
	log     []string
	loadErr error
	execErr error
	columns []string
	rows    []ilsetl.Row
}

func (m *mockStager) SetAutocommit(on bool) error {
	m.log = append(m.log, fmt.Sprintf("autocommit=%t", on))
	return nil
}

func (m *mockStager) Load(_ context.Context, records []ilsetl.Record, table string) (int64, error) {
	m.log = append(m.log, fmt.Sprintf("load %s %d", table, len(records)))
	if m.loadErr != nil {
		return 0, m.loadErr
	}
	return int64(len(records)), nil
}

func (m *mockStager) Execute(_ context.Context, sql string, _ ...any) error {
	m.log = append(m.log, "exec "+sql)
	return m.execErr
}

func (m *mockStager) Run(_ context.Context, sql string, _ ...any) ([]ilsetl.Row, error) {
	m.log = append(m.log, "run "+sql)
	return m.rows, nil
}

func (m *mockStager) Query(_ context.Context, sql string, _ ...any) ([]string, []ilsetl.Row, error) {
	m.log = append(m.log, "query "+sql)
	return m.columns, m.rows, nil
}

func (m *mockStager) Commit(context.Context) error {
	m.log = append(m.log, "commit")
	return nil
}

func (m *mockStager) Rollback(context.Context) error {
	m.log = append(m.log, "rollback")
	return nil
}

func (m *mockStager) Close(context.Context) error {
	m.log = append(m.log, "close")
	return nil
}

func factoryFor(s *mockStager) StagerFactory {
	return func(context.Context) (Stager, error) { return s, nil }
}
