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

package types

import (
	"fmt"
	"time"

	"github.com/conveyorci/conveyor/internal/sqlg"
	"github.com/conveyorci/conveyor/internal/sqlg/sql"
)

// DeployExclusivityKey derives the deduplication key for deployments of a
// commit. Two submissions for the same commit share the key and thus at
// most one active deploy job.
func DeployExclusivityKey(commitID string) string {
	return fmt.Sprintf("deploy-%s", commitID)
}

type DeployJobStatus string

const (
	DeployJobStatusQueued  DeployJobStatus = "queued"
	DeployJobStatusRunning DeployJobStatus = "running"
	DeployJobStatusDone    DeployJobStatus = "done"
	DeployJobStatusFailed  DeployJobStatus = "failed"
)

// IsActive reports if the job is pending or running. At most one active job
// may exist per exclusivity key.
func (s DeployJobStatus) IsActive() bool {
	return s == DeployJobStatusQueued || s == DeployJobStatusRunning
}

// DeployJob is a background deployment job. Submissions for the same
// exclusivity key coalesce into the existing active job.
type DeployJob struct {
	sqlg.ObjectMeta

	// Sequence is a service wide increasing sequence number used to process
	// jobs in submission order.
	Sequence uint64 `json:"sequence"`

	Name           string `json:"name"`
	ExclusivityKey string `json:"exclusivity_key"`
	Description    string `json:"description,omitempty"`

	Payload DeployPayload `json:"payload"`

	Status DeployJobStatus `json:"status"`

	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

type DeployPayload struct {
	CommitID string `json:"commitId"`
	Deploy   bool   `json:"deploy"`
}

func NewDeployJob(tx *sql.Tx) *DeployJob {
	return &DeployJob{
		ObjectMeta: sqlg.NewObjectMeta(tx),
		Status:     DeployJobStatusQueued,
	}
}

// JobHandle is returned by a deploy job submission. It's logged by the
// caller and not persisted.
type JobHandle struct {
	JobID          string    `json:"job_id"`
	ExclusivityKey string    `json:"exclusivity_key"`
	SubmittedAt    time.Time `json:"submitted_at"`

	// Coalesced is true when the submission was absorbed by an already
	// active job for the same exclusivity key.
	Coalesced bool `json:"coalesced"`
}
