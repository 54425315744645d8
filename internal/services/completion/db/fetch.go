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

	sq "github.com/huandu/go-sqlbuilder"
	"github.com/sorintlab/errors"

	"github.com/conveyorci/conveyor/internal/sqlg/sql"
	"github.com/conveyorci/conveyor/services/completion/types"
)

func (d *DB) fetchRuns(tx *sql.Tx, q sq.Builder) ([]*types.Run, error) {
	rows, err := d.query(tx, q)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	runs := []*types.Run{}
	for rows.Next() {
		v := &types.Run{}
		var configJSON []byte

		if err := rows.Scan(&v.ID, &v.Revision, &v.CreationTime, &v.UpdateTime, &v.Sequence, &v.UpdateSetID, &v.CommitID, &v.State, &v.Verdict, &configJSON); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}

		if len(configJSON) > 0 {
			if err := json.Unmarshal(configJSON, &v.Config); err != nil {
				return nil, errors.Wrap(err, "failed to unmarshal run config")
			}
		}

		v.TxID = tx.ID()

		runs = append(runs, v)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	return runs, nil
}

func (d *DB) fetchUpdateSets(tx *sql.Tx, q sq.Builder) ([]*types.UpdateSet, error) {
	rows, err := d.query(tx, q)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	updateSets := []*types.UpdateSet{}
	for rows.Next() {
		v := &types.UpdateSet{}

		if err := rows.Scan(&v.ID, &v.Revision, &v.CreationTime, &v.UpdateTime, &v.Name, &v.Description, &v.PullRequestRaised); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}

		v.TxID = tx.ID()

		updateSets = append(updateSets, v)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	return updateSets, nil
}

func (d *DB) fetchDeployJobs(tx *sql.Tx, q sq.Builder) ([]*types.DeployJob, error) {
	rows, err := d.query(tx, q)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	deployJobs := []*types.DeployJob{}
	for rows.Next() {
		v := &types.DeployJob{}
		var payloadJSON []byte
		var finishedAt stdsql.NullTime

		if err := rows.Scan(&v.ID, &v.Revision, &v.CreationTime, &v.UpdateTime, &v.Sequence, &v.Name, &v.ExclusivityKey, &v.Description, &payloadJSON, &v.Status, &finishedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}

		if len(payloadJSON) > 0 {
			if err := json.Unmarshal(payloadJSON, &v.Payload); err != nil {
				return nil, errors.Wrap(err, "failed to unmarshal deploy job payload")
			}
		}
		if finishedAt.Valid {
			t := finishedAt.Time
			v.FinishedAt = &t
		}

		v.TxID = tx.ID()

		deployJobs = append(deployJobs, v)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	return deployJobs, nil
}
