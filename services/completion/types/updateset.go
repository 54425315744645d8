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
	"github.com/conveyorci/conveyor/internal/sqlg"
	"github.com/conveyorci/conveyor/internal/sqlg/sql"
)

// UpdateSet is the unit of change being built and deployed. Multiple
// historical runs may reference the same update set.
type UpdateSet struct {
	sqlg.ObjectMeta

	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// PullRequestRaised transitions false to true at most once per update
	// set lifetime. It's the durable record backing the pull request
	// idempotency gate, so the guarantee holds across re-runs.
	PullRequestRaised bool `json:"pull_request_raised"`
}

func NewUpdateSet(tx *sql.Tx) *UpdateSet {
	return &UpdateSet{
		ObjectMeta: sqlg.NewObjectMeta(tx),
	}
}
