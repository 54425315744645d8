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

package sqlg

import (
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/sorintlab/errors"

	"github.com/conveyorci/conveyor/internal/sqlg/sql"
)

// ErrConcurrent is returned when an update fails because the object was
// concurrently updated by another transaction (its revision changed between
// fetch and update).
var ErrConcurrent = errors.New("concurrent update")

// ObjectMeta is the common metadata of every persisted object. Updates use
// optimistic concurrency on Revision: the update statement matches both id
// and the fetched revision and fails with ErrConcurrent when no row matches.
type ObjectMeta struct {
	ID string `json:"id"`

	Revision uint64 `json:"revision"`

	CreationTime time.Time `json:"creation_time"`
	UpdateTime   time.Time `json:"update_time"`

	// TxID is the id of the transaction that created or fetched the object.
	// Objects can only be inserted/updated by the same transaction.
	TxID string `json:"-"`
}

func NewObjectMeta(tx *sql.Tx) ObjectMeta {
	return ObjectMeta{
		ID:   uuid.Must(uuid.NewV4()).String(),
		TxID: tx.ID(),
	}
}
