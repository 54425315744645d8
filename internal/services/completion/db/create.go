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

	"github.com/sorintlab/errors"

	"github.com/conveyorci/conveyor/internal/sqlg/sql"
)

var ddlPostgres = []string{
	"create table if not exists run (id varchar NOT NULL, revision bigint NOT NULL, creation_time timestamptz NOT NULL, update_time timestamptz NOT NULL, sequence bigint NOT NULL, update_set_id varchar NOT NULL, commit_id varchar NOT NULL, state varchar NOT NULL, verdict varchar NOT NULL, config jsonb NOT NULL, PRIMARY KEY (id))",
	"create index if not exists run_update_set_id_idx on run(update_set_id)",

	"create table if not exists updateset (id varchar NOT NULL, revision bigint NOT NULL, creation_time timestamptz NOT NULL, update_time timestamptz NOT NULL, name varchar NOT NULL, description varchar NOT NULL, pull_request_raised boolean NOT NULL, PRIMARY KEY (id))",

	"create table if not exists deployjob (id varchar NOT NULL, revision bigint NOT NULL, creation_time timestamptz NOT NULL, update_time timestamptz NOT NULL, sequence bigint NOT NULL, name varchar NOT NULL, exclusivity_key varchar NOT NULL, description varchar NOT NULL, payload jsonb NOT NULL, status varchar NOT NULL, finished_at timestamptz, PRIMARY KEY (id))",
	"create index if not exists deployjob_sequence_idx on deployjob(sequence)",
	"create index if not exists deployjob_exclusivity_key_idx on deployjob(exclusivity_key)",

	"create sequence if not exists deployjob_sequence_seq",
}

var ddlSqlite3 = []string{
	"create table if not exists run (id varchar NOT NULL, revision bigint NOT NULL, creation_time timestamp NOT NULL, update_time timestamp NOT NULL, sequence bigint NOT NULL, update_set_id varchar NOT NULL, commit_id varchar NOT NULL, state varchar NOT NULL, verdict varchar NOT NULL, config text NOT NULL, PRIMARY KEY (id))",
	"create index if not exists run_update_set_id_idx on run(update_set_id)",

	"create table if not exists updateset (id varchar NOT NULL, revision bigint NOT NULL, creation_time timestamp NOT NULL, update_time timestamp NOT NULL, name varchar NOT NULL, description varchar NOT NULL, pull_request_raised integer NOT NULL, PRIMARY KEY (id))",

	"create table if not exists deployjob (id varchar NOT NULL, revision bigint NOT NULL, creation_time timestamp NOT NULL, update_time timestamp NOT NULL, sequence bigint NOT NULL, name varchar NOT NULL, exclusivity_key varchar NOT NULL, description varchar NOT NULL, payload text NOT NULL, status varchar NOT NULL, finished_at timestamp, PRIMARY KEY (id))",
	"create index if not exists deployjob_sequence_idx on deployjob(sequence)",
	"create index if not exists deployjob_exclusivity_key_idx on deployjob(exclusivity_key)",

	"create table if not exists sequence_t (name varchar UNIQUE NOT NULL, value bigint NOT NULL, PRIMARY KEY (name))",
}

// Setup creates the database schema if it doesn't already exist.
func (d *DB) Setup(ctx context.Context) error {
	var stmts []string
	switch d.sdb.Type() {
	case sql.Postgres:
		stmts = ddlPostgres
	case sql.Sqlite3:
		stmts = ddlSqlite3
	}

	err := d.Do(ctx, func(tx *sql.Tx) error {
		for _, stmt := range stmts {
			if _, err := tx.Exec(stmt); err != nil {
				return errors.Wrapf(err, "failed to execute ddl statement")
			}
		}

		return nil
	})

	return errors.WithStack(err)
}
