// Package archive keeps fetched result sets in a local bolt file so a fetch
// and a load can happen at different times.
//
// Runs live in the "runs" bucket under an ordered (fetched_at, id) key, which
// makes cursor order chronological. A second bucket maps run IDs to those keys.
package archive

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/openkvlab/boltdb"
	"github.com/vmihailenco/msgpack/v5"
	"rsc.io/ordered"

	"github.com/ilsetl/ilsetl/internal/checksum"
	"github.com/ilsetl/ilsetl/pkg/ilsetl"
)

// ErrRunNotFound is returned when no run matches the requested ID.
var ErrRunNotFound = errors.New("run not found")

var (
	runsBucket  = []byte("runs")
	indexBucket = []byte("run_ids")
)

const openTimeout = time.Second

// Run is one archived fetch.
type Run struct {
	ID        string
	Dataset   string
	Where     string
	FetchedAt time.Time
	Records   []ilsetl.Record
}

// Summary describes a run without its records.
type Summary struct {
	ID        string    `msgpack:"id"`
	Dataset   string    `msgpack:"dataset"`
	Where     string    `msgpack:"where"`
	FetchedAt time.Time `msgpack:"fetched_at"`
	Count     int       `msgpack:"count"`
	Checksum  string    `msgpack:"checksum"`
}

// storedRun is the msgpack form of a Run. Records are stored as ordered field
// lists so key order survives the round trip.
type storedRun struct {
	Summary `msgpack:",inline"`
	Records [][]ilsetl.Field `msgpack:"records"`
}

// NewRun stamps records with a fresh ID and the current time.
func NewRun(dataset, where string, records []ilsetl.Record) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Dataset:   dataset,
		Where:     where,
		FetchedAt: time.Now().UTC(),
		Records:   records,
	}
}

// Store is an open archive file. Safe for concurrent use.
type Store struct {
	db *boltdb.DB
}

// Open opens or creates the archive at path.
func Open(path string) (*Store, error) {
	db, err := boltdb.Open(path, 0o600, &boltdb.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}

	err = db.Update(func(tx *boltdb.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(runsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(indexBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize archive %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Exists reports whether an archive file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Close closes the archive file.
func (s *Store) Close() error {
	return s.db.Close()
}

func runKey(fetchedAt time.Time, id string) []byte {
	return ordered.Encode(fetchedAt.UnixNano(), id)
}

// Save stores run, replacing any run with the same ID.
func (s *Store) Save(run *Run) error {
	if run.ID == "" {
		return fmt.Errorf("run ID is required: %w", ilsetl.ErrInvalidConfig)
	}

	sum, err := checksum.Records(run.Records)
	if err != nil {
		return fmt.Errorf("checksum run %s: %w", run.ID, err)
	}

	stored := storedRun{
		Summary: Summary{
			ID:        run.ID,
			Dataset:   run.Dataset,
			Where:     run.Where,
			FetchedAt: run.FetchedAt,
			Count:     len(run.Records),
			Checksum:  sum,
		},
		Records: make([][]ilsetl.Field, len(run.Records)),
	}
	for i, r := range run.Records {
		stored.Records[i] = r.Fields()
	}

	value, err := msgpack.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", run.ID, err)
	}

	key := runKey(run.FetchedAt, run.ID)
	return s.db.Update(func(tx *boltdb.Tx) error {
		runs, index := tx.Bucket(runsBucket), tx.Bucket(indexBucket)
		if old := index.Get([]byte(run.ID)); old != nil {
			if err := runs.Delete(old); err != nil {
				return err
			}
		}
		if err := runs.Put(key, value); err != nil {
			return err
		}
		return index.Put([]byte(run.ID), key)
	})
}

// Get returns the run with the given ID.
func (s *Store) Get(id string) (*Run, error) {
	var run *Run
	err := s.db.View(func(tx *boltdb.Tx) error {
		key := tx.Bucket(indexBucket).Get([]byte(id))
		if key == nil {
			return fmt.Errorf("%s: %w", id, ErrRunNotFound)
		}
		var err error
		run, err = decodeRun(tx.Bucket(runsBucket).Get(key))
		return err
	})
	return run, err
}

// Latest returns the most recently fetched run.
func (s *Store) Latest() (*Run, error) {
	var run *Run
	err := s.db.View(func(tx *boltdb.Tx) error {
		k, v := tx.Bucket(runsBucket).Cursor().Last()
		if k == nil {
			return fmt.Errorf("archive is empty: %w", ErrRunNotFound)
		}
		var err error
		run, err = decodeRun(v)
		return err
	})
	return run, err
}

// List returns summaries of all runs, newest first.
func (s *Store) List() ([]Summary, error) {
	summaries := []Summary{}
	err := s.db.View(func(tx *boltdb.Tx) error {
		c := tx.Bucket(runsBucket).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var sum Summary
			if err := msgpack.Unmarshal(v, &sum); err != nil {
				return fmt.Errorf("decode run summary: %w", err)
			}
			summaries = append(summaries, sum)
		}
		return nil
	})
	return summaries, err
}

// Delete removes the run with the given ID.
func (s *Store) Delete(id string) error {
	return s.db.Update(func(tx *boltdb.Tx) error {
		index := tx.Bucket(indexBucket)
		key := index.Get([]byte(id))
		if key == nil {
			return fmt.Errorf("%s: %w", id, ErrRunNotFound)
		}
		if err := tx.Bucket(runsBucket).Delete(key); err != nil {
			return err
		}
		return index.Delete([]byte(id))
	})
}

func decodeRun(data []byte) (*Run, error) {
	var stored storedRun
	if err := msgpack.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("decode run: %w", err)
	}

	run := &Run{
		ID:        stored.ID,
		Dataset:   stored.Dataset,
		Where:     stored.Where,
		FetchedAt: stored.FetchedAt,
		Records:   make([]ilsetl.Record, len(stored.Records)),
	}
	for i, fields := range stored.Records {
		run.Records[i] = ilsetl.RecordFromFields(fields)
	}
	return run, nil
}
