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

package api

import (
	capitypes "github.com/conveyorci/conveyor/services/completion/api/types"
	"github.com/conveyorci/conveyor/services/completion/types"
)

func runResponse(run *types.Run) *capitypes.RunResponse {
	return &capitypes.RunResponse{
		ID:           run.ID,
		Sequence:     run.Sequence,
		UpdateSetID:  run.UpdateSetID,
		CommitID:     run.CommitID,
		State:        string(run.State),
		Verdict:      string(run.Verdict),
		CreationTime: run.CreationTime,
		UpdateTime:   run.UpdateTime,
	}
}

func deployJobResponse(deployJob *types.DeployJob) *capitypes.DeployJobResponse {
	return &capitypes.DeployJobResponse{
		ID:             deployJob.ID,
		Sequence:       deployJob.Sequence,
		Name:           deployJob.Name,
		ExclusivityKey: deployJob.ExclusivityKey,
		Description:    deployJob.Description,
		CommitID:       deployJob.Payload.CommitID,
		Status:         string(deployJob.Status),
		FinishedAt:     deployJob.FinishedAt,
	}
}
