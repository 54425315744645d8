// Copyright 2024 The Conveyor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied
// See the License for the specific language governing permissions and
// limitations under the License.

package db

import (
	"context"
	stdsql "database/sql"

	sq "github.com/huandu/go-sqlbuilder"
	"github.com/rs/zerolog"
	"github.com/sorintlab/errors"

	"github.com/conveyorci/conveyor/internal/sqlg/sql"
	"github.com/conveyorci/conveyor/services/completion/types"
)

type DB struct {
	log zerolog.Logger
	sdb *sql.DB
}

func NewDB(log zerolog.Logger, sdb *sql.DB) (*DB, error) {
	return &DB{
		log: log,
		sdb: sdb,
	}, nil
}

func (d *DB) DBType() sql.Type {
	return d.sdb.Type()
}

func (d *DB) Do(ctx context.Context, f func(tx *sql.Tx) error) error {
	return errors.WithStack(d.sdb.Do(ctx, f))
}

func (d *DB) Flavor() sq.Flavor {
	switch d.sdb.Type() {
	case sql.Postgres:
		return sq.PostgreSQL
	case sql.Sqlite3:
		return sq.SQLite
	}

	return sq.PostgreSQL
}

func (d *DB) exec(tx *sql.Tx, rq sq.Builder) (stdsql.Result, error) {
	q, args := rq.BuildWithFlavor(d.Flavor())

	r, err := tx.Exec(q, args...)
	return r, errors.WithStack(err)
}

func (d *DB) query(tx *sql.Tx, rq sq.Builder) (*stdsql.Rows, error) {
	q, args := rq.BuildWithFlavor(d.Flavor())

	r, err := tx.Query(q, args...)
	return r, errors.WithStack(err)
}

func mustSingleRow[T any](s []*T) (*T, error) {
	if len(s) > 1 {
		return nil, errors.Errorf("too many rows returned")
	}
	if len(s) == 0 {
		return nil, nil
	}

	return s[0], nil
}

func (d *DB) GetRun(tx *sql.Tx, runID string) (*types.Run, error) {
	q := runSelect()
	q.Where(q.E("id", runID))
	runs, err := d.fetchRuns(tx, q)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	out, err := mustSingleRow(runs)
	return out, errors.WithStack(err)
}

func (d *DB) GetRunsByUpdateSetID(tx *sql.Tx, updateSetID string) ([]*types.Run, error) {
	q := runSelect().OrderBy("sequence").Asc()
	q.Where(q.E("update_set_id", updateSetID))
	runs, err := d.fetchRuns(tx, q)
	return runs, errors.WithStack(err)
}

func (d *DB) GetUpdateSet(tx *sql.Tx, updateSetID string) (*types.UpdateSet, error) {
	q := updateSetSelect()
	q.Where(q.E("id", updateSetID))
	updateSets, err := d.fetchUpdateSets(tx, q)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	out, err := mustSingleRow(updateSets)
	return out, errors.WithStack(err)
}

func (d *DB) GetDeployJob(tx *sql.Tx, deployJobID string) (*types.DeployJob, error) {
	q := deployJobSelect()
	q.Where(q.E("id", deployJobID))
	deployJobs, err := d.fetchDeployJobs(tx, q)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	out, err := mustSingleRow(deployJobs)
	return out, errors.WithStack(err)
}

// GetActiveDeployJobByExclusivityKey returns the queued or running deploy
// job for the provided exclusivity key, nil when there's none. Callers must
// run inside a transaction to atomically check and insert.
func (d *DB) GetActiveDeployJobByExclusivityKey(tx *sql.Tx, exclusivityKey string) (*types.DeployJob, error) {
	q := deployJobSelect()
	q.Where(q.E("exclusivity_key", exclusivityKey))
	q.Where(q.In("status", string(types.DeployJobStatusQueued), string(types.DeployJobStatusRunning)))
	deployJobs, err := d.fetchDeployJobs(tx, q)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	out, err := mustSingleRow(deployJobs)
	return out, errors.WithStack(err)
}

func (d *DB) GetDeployJobsByExclusivityKey(tx *sql.Tx, exclusivityKey string) ([]*types.DeployJob, error) {
	q := deployJobSelect().OrderBy("sequence").Asc()
	q.Where(q.E("exclusivity_key", exclusivityKey))
	deployJobs, err := d.fetchDeployJobs(tx, q)
	return deployJobs, errors.WithStack(err)
}

func (d *DB) GetQueuedDeployJobsAfterSequence(tx *sql.Tx, afterSequence uint64, limit int) ([]*types.DeployJob, error) {
	q := deployJobSelect().OrderBy("sequence").Asc()
	q.Where(q.E("status", string(types.DeployJobStatusQueued)))
	q.Where(q.G("sequence", afterSequence))

	if limit > 0 {
		q.Limit(limit)
	}

	deployJobs, err := d.fetchDeployJobs(tx, q)
	return deployJobs, errors.WithStack(err)
}
