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

package notify

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestEnvelopeRecipient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		recipient string
		address   string
		errors    bool
	}{
		{
			name:      "display name form is reduced to the bare address",
			recipient: `"John Doe" <jdoe@example.com>`,
			address:   "jdoe@example.com",
		},
		{
			name:      "bare address",
			recipient: "jdoe@example.com",
			address:   "jdoe@example.com",
		},
		{
			name:      "unquoted display name",
			recipient: "John Doe <jdoe@example.com>",
			address:   "jdoe@example.com",
		},
		{
			name:      "empty recipient",
			recipient: "",
			errors:    true,
		},
		{
			name:      "not an address",
			recipient: "not an address",
			errors:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			address, err := envelopeRecipient(tt.recipient)

			if tt.errors {
				assert.Assert(t, err != nil)
			} else {
				assert.NilError(t, err)
				assert.Equal(t, address, tt.address)
			}
		})
	}
}
