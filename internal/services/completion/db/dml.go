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
	stdsql "database/sql"
	"encoding/json"
	"time"

	sq "github.com/huandu/go-sqlbuilder"
	"github.com/sorintlab/errors"

	"github.com/conveyorci/conveyor/internal/sqlg"
	"github.com/conveyorci/conveyor/internal/sqlg/sql"
	"github.com/conveyorci/conveyor/services/completion/types"
)

var (
	runSelectColumns = []string{"run.id", "run.revision", "run.creation_time", "run.update_time", "run.sequence", "run.update_set_id", "run.commit_id", "run.state", "run.verdict", "run.config"}

	runSelect = func() *sq.SelectBuilder {
		return sq.NewSelectBuilder().Select(runSelectColumns...).From("run")
	}

	updateSetSelectColumns = []string{"updateset.id", "updateset.revision", "updateset.creation_time", "updateset.update_time", "updateset.name", "updateset.description", "updateset.pull_request_raised"}

	updateSetSelect = func() *sq.SelectBuilder {
		return sq.NewSelectBuilder().Select(updateSetSelectColumns...).From("updateset")
	}

	deployJobSelectColumns = []string{"deployjob.id", "deployjob.revision", "deployjob.creation_time", "deployjob.update_time", "deployjob.sequence", "deployjob.name", "deployjob.exclusivity_key", "deployjob.description", "deployjob.payload", "deployjob.status", "deployjob.finished_at"}

	deployJobSelect = func() *sq.SelectBuilder {
		return sq.NewSelectBuilder().Select(deployJobSelectColumns...).From("deployjob")
	}
)

func (d *DB) nextSequence(tx *sql.Tx, sequenceName string) (uint64, error) {
	var nextValue uint64
	switch d.DBType() {
	case sql.Postgres:
		if err := tx.QueryRow("select nextval($1)", sequenceName).Scan(&nextValue); err != nil {
			return 0, errors.Wrapf(err, "failed to get next value for sequence %q", sequenceName)
		}

	case sql.Sqlite3:
		if _, err := tx.Exec("insert into sequence_t (name, value) values ($1, 1) on conflict (name) do update set value = value + 1", sequenceName); err != nil {
			return 0, errors.Wrapf(err, "failed to update sequence %q", sequenceName)
		}
		if err := tx.QueryRow("select value from sequence_t where name = $1", sequenceName).Scan(&nextValue); err != nil {
			return 0, errors.Wrapf(err, "failed to get value for sequence %q", sequenceName)
		}
	}

	return nextValue, nil
}

// checkObjectTx verifies that the object was created or fetched by the
// provided transaction.
func checkObjectTx(tx *sql.Tx, om *sqlg.ObjectMeta) error {
	if om.TxID != tx.ID() {
		return errors.Errorf("object was not created or fetched by this transaction")
	}
	return nil
}

func (d *DB) InsertOrUpdateRun(tx *sql.Tx, v *types.Run) error {
	var err error
	if v.Revision == 0 {
		err = d.InsertRun(tx, v)
	} else {
		err = d.UpdateRun(tx, v)
	}

	return errors.WithStack(err)
}

func (d *DB) InsertRun(tx *sql.Tx, v *types.Run) error {
	if v.Revision != 0 {
		return errors.Errorf("expected revision 0 got %d", v.Revision)
	}
	if err := checkObjectTx(tx, &v.ObjectMeta); err != nil {
		return errors.WithStack(err)
	}

	v.Revision = 1

	now := time.Now()
	v.CreationTime = now
	v.UpdateTime = now

	configJSON, err := json.Marshal(v.Config)
	if err != nil {
		v.Revision = 0
		return errors.Wrap(err, "failed to marshal run config")
	}

	q := sq.NewInsertBuilder()
	q.InsertInto("run").Cols("id", "revision", "creation_time", "update_time", "sequence", "update_set_id", "commit_id", "state", "verdict", "config").Values(v.ID, v.Revision, v.CreationTime, v.UpdateTime, v.Sequence, v.UpdateSetID, v.CommitID, v.State, v.Verdict, configJSON)

	if _, err := d.exec(tx, q); err != nil {
		v.Revision = 0
		return errors.Wrap(err, "failed to insert run")
	}

	return nil
}

func (d *DB) UpdateRun(tx *sql.Tx, v *types.Run) error {
	if v.Revision < 1 {
		return errors.Errorf("expected revision > 0 got %d", v.Revision)
	}
	if err := checkObjectTx(tx, &v.ObjectMeta); err != nil {
		return errors.WithStack(err)
	}

	curRevision := v.Revision
	v.Revision++

	v.UpdateTime = time.Now()

	configJSON, err := json.Marshal(v.Config)
	if err != nil {
		v.Revision = curRevision
		return errors.Wrap(err, "failed to marshal run config")
	}

	q := sq.NewUpdateBuilder()
	q.Update("run").Set(
		q.Assign("revision", v.Revision),
		q.Assign("update_time", v.UpdateTime),
		q.Assign("sequence", v.Sequence),
		q.Assign("update_set_id", v.UpdateSetID),
		q.Assign("commit_id", v.CommitID),
		q.Assign("state", v.State),
		q.Assign("verdict", v.Verdict),
		q.Assign("config", configJSON),
	).Where(q.E("id", v.ID), q.E("revision", curRevision))

	res, err := d.exec(tx, q)
	if err != nil {
		v.Revision = curRevision
		return errors.Wrap(err, "failed to update run")
	}

	if err := checkSingleRowUpdate(res); err != nil {
		v.Revision = curRevision
		return errors.WithStack(err)
	}

	return nil
}

func (d *DB) InsertOrUpdateUpdateSet(tx *sql.Tx, v *types.UpdateSet) error {
	var err error
	if v.Revision == 0 {
		err = d.InsertUpdateSet(tx, v)
	} else {
		err = d.UpdateUpdateSet(tx, v)
	}

	return errors.WithStack(err)
}

func (d *DB) InsertUpdateSet(tx *sql.Tx, v *types.UpdateSet) error {
	if v.Revision != 0 {
		return errors.Errorf("expected revision 0 got %d", v.Revision)
	}
	if err := checkObjectTx(tx, &v.ObjectMeta); err != nil {
		return errors.WithStack(err)
	}

	v.Revision = 1

	now := time.Now()
	v.CreationTime = now
	v.UpdateTime = now

	q := sq.NewInsertBuilder()
	q.InsertInto("updateset").Cols("id", "revision", "creation_time", "update_time", "name", "description", "pull_request_raised").Values(v.ID, v.Revision, v.CreationTime, v.UpdateTime, v.Name, v.Description, v.PullRequestRaised)

	if _, err := d.exec(tx, q); err != nil {
		v.Revision = 0
		return errors.Wrap(err, "failed to insert updateset")
	}

	return nil
}

func (d *DB) UpdateUpdateSet(tx *sql.Tx, v *types.UpdateSet) error {
	if v.Revision < 1 {
		return errors.Errorf("expected revision > 0 got %d", v.Revision)
	}
	if err := checkObjectTx(tx, &v.ObjectMeta); err != nil {
		return errors.WithStack(err)
	}

	curRevision := v.Revision
	v.Revision++

	v.UpdateTime = time.Now()

	q := sq.NewUpdateBuilder()
	q.Update("updateset").Set(
		q.Assign("revision", v.Revision),
		q.Assign("update_time", v.UpdateTime),
		q.Assign("name", v.Name),
		q.Assign("description", v.Description),
		q.Assign("pull_request_raised", v.PullRequestRaised),
	).Where(q.E("id", v.ID), q.E("revision", curRevision))

	res, err := d.exec(tx, q)
	if err != nil {
		v.Revision = curRevision
		return errors.Wrap(err, "failed to update updateset")
	}

	if err := checkSingleRowUpdate(res); err != nil {
		v.Revision = curRevision
		return errors.WithStack(err)
	}

	return nil
}

func (d *DB) InsertDeployJob(tx *sql.Tx, v *types.DeployJob) error {
	if v.Revision != 0 {
		return errors.Errorf("expected revision 0 got %d", v.Revision)
	}
	if err := checkObjectTx(tx, &v.ObjectMeta); err != nil {
		return errors.WithStack(err)
	}

	v.Revision = 1

	now := time.Now()
	v.CreationTime = now
	v.UpdateTime = now

	nextSeq, err := d.nextSequence(tx, "deployjob_sequence_seq")
	if err != nil {
		v.Revision = 0
		return errors.Wrap(err, "failed to create next sequence for deployjob_sequence_seq")
	}
	v.Sequence = nextSeq

	payloadJSON, err := json.Marshal(v.Payload)
	if err != nil {
		v.Revision = 0
		return errors.Wrap(err, "failed to marshal deploy job payload")
	}

	q := sq.NewInsertBuilder()
	q.InsertInto("deployjob").Cols("id", "revision", "creation_time", "update_time", "sequence", "name", "exclusivity_key", "description", "payload", "status", "finished_at").Values(v.ID, v.Revision, v.CreationTime, v.UpdateTime, v.Sequence, v.Name, v.ExclusivityKey, v.Description, payloadJSON, v.Status, v.FinishedAt)

	if _, err := d.exec(tx, q); err != nil {
		v.Revision = 0
		return errors.Wrap(err, "failed to insert deployjob")
	}

	return nil
}

func (d *DB) UpdateDeployJob(tx *sql.Tx, v *types.DeployJob) error {
	if v.Revision < 1 {
		return errors.Errorf("expected revision > 0 got %d", v.Revision)
	}
	if err := checkObjectTx(tx, &v.ObjectMeta); err != nil {
		return errors.WithStack(err)
	}

	curRevision := v.Revision
	v.Revision++

	v.UpdateTime = time.Now()

	payloadJSON, err := json.Marshal(v.Payload)
	if err != nil {
		v.Revision = curRevision
		return errors.Wrap(err, "failed to marshal deploy job payload")
	}

	q := sq.NewUpdateBuilder()
	q.Update("deployjob").Set(
		q.Assign("revision", v.Revision),
		q.Assign("update_time", v.UpdateTime),
		q.Assign("sequence", v.Sequence),
		q.Assign("name", v.Name),
		q.Assign("exclusivity_key", v.ExclusivityKey),
		q.Assign("description", v.Description),
		q.Assign("payload", payloadJSON),
		q.Assign("status", v.Status),
		q.Assign("finished_at", v.FinishedAt),
	).Where(q.E("id", v.ID), q.E("revision", curRevision))

	res, err := d.exec(tx, q)
	if err != nil {
		v.Revision = curRevision
		return errors.Wrap(err, "failed to update deployjob")
	}

	if err := checkSingleRowUpdate(res); err != nil {
		v.Revision = curRevision
		return errors.WithStack(err)
	}

	return nil
}

func checkSingleRowUpdate(res stdsql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return errors.WithStack(err)
	}
	if rows != 1 {
		return sqlg.ErrConcurrent
	}

	return nil
}
