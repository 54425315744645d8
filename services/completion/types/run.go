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

	"github.com/mitchellh/copystructure"

	"github.com/conveyorci/conveyor/internal/sqlg"
	"github.com/conveyorci/conveyor/internal/sqlg/sql"
)

type RunState string

const (
	RunStateCreated           RunState = "created"
	RunStateQueued            RunState = "queued"
	RunStateRunning           RunState = "running"
	RunStateBuildCompleted    RunState = "buildcompleted"
	RunStateBuildFailed       RunState = "buildfailed"
	RunStatePullRequestRaised RunState = "pullrequestraised"
	RunStateSuccessful        RunState = "successful"
)

// IsTerminal reports if no further state transition is performed from s.
// A later pipeline stage (e.g. a merge triggered redeploy) may continue the
// lifecycle outside of this service.
func (s RunState) IsTerminal() bool {
	return s == RunStateBuildFailed || s == RunStatePullRequestRaised || s == RunStateSuccessful
}

// runStateTransitions is the set of legal run state transitions. A
// transition to the current state is always allowed and is a no-op since
// completion events may be redelivered.
var runStateTransitions = map[RunState][]RunState{
	RunStateCreated:        {RunStateQueued},
	RunStateQueued:         {RunStateRunning},
	RunStateRunning:        {RunStateBuildCompleted},
	RunStateBuildCompleted: {RunStateBuildFailed, RunStatePullRequestRaised, RunStateSuccessful},
}

type InvalidTransitionError struct {
	From RunState
	To   RunState
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid run state transition from %q to %q", e.From, e.To)
}

func NewInvalidTransitionError(from, to RunState) error {
	return &InvalidTransitionError{From: from, To: to}
}

type Verdict string

const (
	VerdictUnknown Verdict = "unknown"
	VerdictPass    Verdict = "pass"
	VerdictFail    Verdict = "fail"
)

func (v Verdict) IsSet() bool {
	return v != VerdictUnknown && v != ""
}

// Run is the status of one build pipeline execution for an update set. The
// run definition lives in the immutable Config snapshot, assigned at run
// creation.
type Run struct {
	sqlg.ObjectMeta

	// Sequence is a per update set increasing number, used for display and
	// ordering only. It's assigned by the scheduler that creates the run.
	Sequence uint64 `json:"sequence"`

	UpdateSetID string `json:"update_set_id"`

	// CommitID is set once the run has produced a deployable artifact.
	CommitID string `json:"commit_id,omitempty"`

	State RunState `json:"state"`

	// Verdict is the aggregated build verdict. Once set to pass or fail
	// it's never overwritten by a later completion event.
	Verdict Verdict `json:"verdict"`

	Config RunConfig `json:"config"`
}

func NewRun(tx *sql.Tx) *Run {
	return &Run{
		ObjectMeta: sqlg.NewObjectMeta(tx),
		State:      RunStateCreated,
		Verdict:    VerdictUnknown,
	}
}

func (r *Run) DeepCopy() *Run {
	nr, err := copystructure.Copy(r)
	if err != nil {
		panic(err)
	}
	return nr.(*Run)
}

// ChangeState applies the transition to the target state. Re-applying the
// current state is a no-op. An unreachable target state returns an
// InvalidTransitionError and leaves the run untouched.
func (r *Run) ChangeState(target RunState) error {
	if r.State == target {
		return nil
	}

	for _, s := range runStateTransitions[r.State] {
		if s == target {
			r.State = target
			return nil
		}
	}

	return NewInvalidTransitionError(r.State, target)
}

// TaskResult is the runtime outcome of a single build task, supplied by the
// inbound completion event.
type TaskResult struct {
	TestPass bool `json:"testPass"`
}
