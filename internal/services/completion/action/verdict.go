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

package action

import (
	"github.com/conveyorci/conveyor/services/completion/types"
)

// aggregateVerdict reduces the per task build results into a single pass or
// fail verdict. A task fails the run only when it's enabled and gating
// (breakOnError) and its result is missing or not passed. A missing result
// for a gating task never passes silently. Results for task names not
// present in the definitions are ignored. An empty task set passes.
func aggregateVerdict(taskDefs map[string]types.TaskDef, taskResults map[string]types.TaskResult) bool {
	for name, def := range taskDefs {
		if !def.Enabled || !def.BreakOnError {
			continue
		}

		res, ok := taskResults[name]
		if !ok || !res.TestPass {
			return false
		}
	}

	return true
}
