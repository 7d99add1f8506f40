// Package store persists classification reports by run ID.
//
// Two backends implement [Store]:
//   - file: one JSON file per run below a directory, for the CLI
//   - mongo: a MongoDB collection, for deployments that keep a history of
//     runs and serve it through the query API
//
// # Usage
//
//	st, err := store.NewMongoStore(ctx, store.MongoConfig{URI: uri})
//	if err != nil {
//	    return err
//	}
//	defer st.Close(ctx)
//
//	err = st.Save(ctx, store.NewRecord(rep, inputHash))
//	rec, err := st.Load(ctx, rep.RunID)
package store

import (
	"context"
	"errors"
	"time"

	"github.com/matzehuels/labeltower/pkg/result"
)

// ErrNotFound is returned when no run with the requested ID exists.
var ErrNotFound = errors.New("run not found")

// Record is a stored classification run.
type Record struct {
	RunID     string         `json:"run_id"`
	Scheme    string         `json:"scheme"`
	InputHash string         `json:"input_hash,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	Report    *result.Report `json:"report"`
}

// Summary describes a stored run without its report.
type Summary struct {
	RunID     string       `json:"run_id"`
	Scheme    string       `json:"scheme"`
	InputHash string       `json:"input_hash,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	Stats     result.Stats `json:"stats"`
}

// NewRecord wraps a report for storing.
func NewRecord(rep *result.Report, inputHash string) *Record {
	return &Record{
		RunID:     rep.RunID,
		Scheme:    rep.Scheme,
		InputHash: inputHash,
		CreatedAt: time.Now().UTC(),
		Report:    rep,
	}
}

// Summary returns the summary of r.
func (r *Record) Summary() Summary {
	s := Summary{RunID: r.RunID, Scheme: r.Scheme, InputHash: r.InputHash, CreatedAt: r.CreatedAt}
	if r.Report != nil {
		s.Stats = r.Report.Stats
	}
	return s
}

// Store is the interface for report storage backends.
type Store interface {
	// Save stores rec, replacing a record with the same run ID.
	Save(ctx context.Context, rec *Record) error

	// Load returns the record of a run, or ErrNotFound.
	Load(ctx context.Context, runID string) (*Record, error)

	// List returns up to limit summaries, newest first. A limit of zero
	// lists everything.
	List(ctx context.Context, limit int) ([]Summary, error)

	// Delete removes a run. Deleting a missing run is not an error.
	Delete(ctx context.Context, runID string) error

	Close(ctx context.Context) error
}
