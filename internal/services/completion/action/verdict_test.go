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
	"testing"

	"gotest.tools/v3/assert"

	"github.com/conveyorci/conveyor/services/completion/types"
)

func TestAggregateVerdict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		taskDefs    map[string]types.TaskDef
		taskResults map[string]types.TaskResult
		pass        bool
	}{
		{
			name: "empty task set passes",
			pass: true,
		},
		{
			name:        "all gating tasks pass",
			taskDefs:    map[string]types.TaskDef{"lint": {Enabled: true, BreakOnError: true}, "test": {Enabled: true, BreakOnError: true}},
			taskResults: map[string]types.TaskResult{"lint": {TestPass: true}, "test": {TestPass: true}},
			pass:        true,
		},
		{
			name:        "gating task fails",
			taskDefs:    map[string]types.TaskDef{"lint": {Enabled: true, BreakOnError: true}},
			taskResults: map[string]types.TaskResult{"lint": {TestPass: false}},
			pass:        false,
		},
		{
			name:     "missing result for gating task fails",
			taskDefs: map[string]types.TaskDef{"lint": {Enabled: true, BreakOnError: true}},
			pass:     false,
		},
		{
			name:        "disabled task failure is ignored",
			taskDefs:    map[string]types.TaskDef{"lint": {Enabled: false, BreakOnError: true}},
			taskResults: map[string]types.TaskResult{"lint": {TestPass: false}},
			pass:        true,
		},
		{
			name:        "non gating task failure is ignored",
			taskDefs:    map[string]types.TaskDef{"lint": {Enabled: true, BreakOnError: false}},
			taskResults: map[string]types.TaskResult{"lint": {TestPass: false}},
			pass:        true,
		},
		{
			name:     "missing result for non gating task passes",
			taskDefs: map[string]types.TaskDef{"doc": {Enabled: true, BreakOnError: false}},
			pass:     true,
		},
		{
			name:        "unknown result names are ignored",
			taskDefs:    map[string]types.TaskDef{"lint": {Enabled: true, BreakOnError: true}},
			taskResults: map[string]types.TaskResult{"lint": {TestPass: true}, "unknown": {TestPass: false}},
			pass:        true,
		},
		{
			name:        "one of many gating tasks fails",
			taskDefs:    map[string]types.TaskDef{"lint": {Enabled: true, BreakOnError: true}, "test": {Enabled: true, BreakOnError: true}, "doc": {Enabled: true, BreakOnError: false}},
			taskResults: map[string]types.TaskResult{"lint": {TestPass: true}, "test": {TestPass: false}},
			pass:        false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, aggregateVerdict(tt.taskDefs, tt.taskResults), tt.pass)
		})
	}
}

func TestRouteDecision(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		verdict  types.Verdict
		config   types.RunConfig
		decision Decision
	}{
		{
			name:     "fail verdict routes to fail",
			verdict:  types.VerdictFail,
			config:   types.RunConfig{Git: types.GitConfig{Enabled: true, PullRequestEnabled: true}},
			decision: DecisionFail,
		},
		{
			name:     "pass with git pull request enabled",
			verdict:  types.VerdictPass,
			config:   types.RunConfig{Git: types.GitConfig{Enabled: true, PullRequestEnabled: true}},
			decision: DecisionRaisePullRequest,
		},
		{
			name:     "pass with git enabled but pull request disabled and deploy enabled",
			verdict:  types.VerdictPass,
			config:   types.RunConfig{Git: types.GitConfig{Enabled: true}, Deploy: types.DeployConfig{Enabled: true, OnBuildPass: true}},
			decision: DecisionDeploy,
		},
		{
			name:     "pass with deploy enabled but not on build pass",
			verdict:  types.VerdictPass,
			config:   types.RunConfig{Deploy: types.DeployConfig{Enabled: true}},
			decision: DecisionSucceed,
		},
		{
			name:     "pull request takes priority over deploy",
			verdict:  types.VerdictPass,
			config:   types.RunConfig{Git: types.GitConfig{Enabled: true, PullRequestEnabled: true}, Deploy: types.DeployConfig{Enabled: true, OnBuildPass: true}},
			decision: DecisionRaisePullRequest,
		},
		{
			name:     "pass with no integrations",
			verdict:  types.VerdictPass,
			decision: DecisionSucceed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, routeDecision(tt.verdict, &tt.config), tt.decision)
		})
	}
}
