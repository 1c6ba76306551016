package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ilsetl/ilsetl/internal/checksum"
	"github.com/ilsetl/ilsetl/internal/sales"
	"github.com/ilsetl/ilsetl/internal/staging"
	"github.com/ilsetl/ilsetl/pkg/ilsetl"
)

// QueryRunner fetches records. *sales.API implements it.
type QueryRunner interface {
	Query(ctx context.Context, filters ilsetl.Filters, opts ...sales.QueryOption) ([]ilsetl.Record, error)
}

// Stager is the session a load runs in. *staging.Loader implements it.
type Stager interface {
	SetAutocommit(on bool) error
	Load(ctx context.Context, records []ilsetl.Record, table string) (int64, error)
	Execute(ctx context.Context, sql string, args ...any) error
	Run(ctx context.Context, sql string, args ...any) ([]ilsetl.Row, error)
	Query(ctx context.Context, sql string, args ...any) ([]string, []ilsetl.Row, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Close(ctx context.Context) error
}

var _ Stager = (*staging.Loader)(nil)

// StagerFactory opens the session for one load.
type StagerFactory func(ctx context.Context) (Stager, error)

// LoadResult summarizes a finished load.
type LoadResult struct {
	Table     string
	Fetched   int
	Loaded    int64
	Committed bool

	// PostSQLChecksum identifies the post-load script independent of formatting.
	PostSQLChecksum string

	// Columns and Preview hold the staged rows read back when requested.
	// Columns come from the result, so they reflect any post-load changes.
	Columns []string
	Preview []ilsetl.Row
}

// LoadService implements the fetch, stage, commit workflow.
// Thread-Safety: safe for concurrent Load calls; each call opens its own session.
type LoadService struct {
	api        QueryRunner
	openStager StagerFactory
	logger     ilsetl.Logger
}

// NewLoadService creates a LoadService. Panics on nil dependencies.
func NewLoadService(api QueryRunner, openStager StagerFactory, logger ilsetl.Logger) *LoadService {
	if api == nil {
		panic("api cannot be nil")
	}
	if openStager == nil {
		panic("openStager cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &LoadService{api: api, openStager: openStager, logger: logger}
}

// Fetch runs the query described by cfg.
func (s *LoadService) Fetch(ctx context.Context, cfg ilsetl.LoadConfig) ([]ilsetl.Record, error) {
	var opts []sales.QueryOption
	if cfg.Limit > 0 {
		opts = append(opts, sales.WithLimit(cfg.Limit))
	}
	if cfg.AllPages {
		opts = append(opts, sales.AllPages())
	}
	return s.api.Query(ctx, cfg.Filters, opts...)
}

// Load stages records into cfg.Table. A nil records slice means fetch first.
//
// On any failure the open transaction is rolled back. With cfg.DryRun the
// transaction is rolled back after PostSQL instead of committed.
func (s *LoadService) Load(ctx context.Context, cfg ilsetl.LoadConfig, records []ilsetl.Record) (*LoadResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if records == nil {
		var err error
		records, err = s.Fetch(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("nothing to stage into %s: %w", cfg.Table, ilsetl.ErrNoRecords)
	}
	s.logger.Verbose("Staging %d records into %s", len(records), cfg.Table)

	stager, err := s.openStager(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := stager.Close(context.WithoutCancel(ctx)); err != nil {
			s.logger.Verbose("Closing staging session: %v", err)
		}
	}()

	result, err := s.stage(ctx, stager, cfg, records)
	if err != nil {
		if rbErr := stager.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Error("Rollback failed: %v", rbErr)
		}
		return nil, err
	}
	return result, nil
}

func (s *LoadService) stage(ctx context.Context, stager Stager, cfg ilsetl.LoadConfig, records []ilsetl.Record) (*LoadResult, error) {
	if err := stager.SetAutocommit(cfg.Autocommit); err != nil {
		return nil, err
	}

	loaded, err := stager.Load(ctx, records, cfg.Table)
	if err != nil {
		return nil, err
	}

	result := &LoadResult{Table: staging.TableName(cfg.Table), Fetched: len(records), Loaded: loaded}

	if cfg.PostSQL != "" {
		result.PostSQLChecksum = checksum.SQL(cfg.PostSQL)
		s.logger.Verbose("Running post-load SQL (checksum %s)", checksum.Short(result.PostSQLChecksum))
		if err := stager.Execute(ctx, cfg.PostSQL); err != nil {
			return nil, fmt.Errorf("post-load SQL: %w", err)
		}
	}

	if cfg.Preview > 0 {
		sql := fmt.Sprintf("SELECT * FROM %s LIMIT %d", pgx.Identifier{result.Table}.Sanitize(), cfg.Preview)
		result.Columns, result.Preview, err = stager.Query(ctx, sql)
		if err != nil {
			return nil, err
		}
	}

	if cfg.DryRun {
		if err := stager.Rollback(ctx); err != nil {
			return nil, err
		}
		s.logger.Info("Dry run: rolled back %d staged rows", loaded)
		return result, nil
	}

	if err := stager.Commit(ctx); err != nil {
		return nil, err
	}
	result.Committed = true
	return result, nil
}
