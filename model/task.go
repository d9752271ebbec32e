// Copyright 2023 Northern.tech AS
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

package model

import (
	"time"
)

type RunState string

const (
	RunStatePending   RunState = "pending"
	RunStateRunning   RunState = "running"
	RunStateCompleted RunState = "completed"
	RunStateFailed    RunState = "failed"
	RunStateException RunState = "exception"

	// TaskStateUnscheduled is the task state before the first run exists.
	TaskStateUnscheduled = "unscheduled"
)

// TaskRun is one execution attempt of a task.
type TaskRun struct {
	State       RunState   `json:"state" bson:"state"`
	WorkerGroup string     `json:"workerGroup,omitempty" bson:"worker_group,omitempty"`
	WorkerID    string     `json:"workerId,omitempty" bson:"worker_id,omitempty"`
	Resolved    *time.Time `json:"resolved,omitempty" bson:"resolved,omitempty"`
}

// Task is a read-only projection of the task entity owned by the queue
// proper. This service never mutates tasks.
type Task struct {
	ID      string    `json:"taskId" bson:"_id"`
	Expires time.Time `json:"expires" bson:"expires"`
	Routes  []string  `json:"routes" bson:"routes"`
	Runs    []TaskRun `json:"runs" bson:"runs"`
}

// Run returns the run with the given ordinal, or nil.
func (t *Task) Run(runID int) *TaskRun {
	if runID < 0 || runID >= len(t.Runs) {
		return nil
	}
	return &t.Runs[runID]
}

// LatestRunID resolves the implicit "latest" run. The second return is
// false when the task has no runs yet.
func (t *Task) LatestRunID() (int, bool) {
	if len(t.Runs) == 0 {
		return 0, false
	}
	return len(t.Runs) - 1, true
}

// RunStatus is the per-run slice of the task status summary.
type RunStatus struct {
	RunID       int        `json:"runId"`
	State       RunState   `json:"state"`
	WorkerGroup string     `json:"workerGroup,omitempty"`
	WorkerID    string     `json:"workerId,omitempty"`
	Resolved    *time.Time `json:"resolved,omitempty"`
}

// TaskStatus is the status summary carried by artifactCreated events.
type TaskStatus struct {
	TaskID  string      `json:"taskId"`
	State   string      `json:"state"`
	Expires time.Time   `json:"expires"`
	Runs    []RunStatus `json:"runs"`
}

// Status derives the status summary. The task state follows the last run;
// a task without runs is unscheduled.
func (t *Task) Status() TaskStatus {
	status := TaskStatus{
		TaskID:  t.ID,
		State:   TaskStateUnscheduled,
		Expires: t.Expires,
		Runs:    make([]RunStatus, len(t.Runs)),
	}
	for i, run := range t.Runs {
		status.Runs[i] = RunStatus{
			RunID:       i,
			State:       run.State,
			WorkerGroup: run.WorkerGroup,
			WorkerID:    run.WorkerID,
			Resolved:    run.Resolved,
		}
	}
	if n := len(t.Runs); n > 0 {
		status.State = string(t.Runs[n-1].State)
	}
	return status
}

// ArtifactCreatedEvent is the payload published to task.Routes whenever
// createArtifact commits, on insert and on idempotent re-create alike.
type ArtifactCreatedEvent struct {
	Status      TaskStatus  `json:"status"`
	Artifact    APIArtifact `json:"artifact"`
	WorkerGroup string      `json:"workerGroup,omitempty"`
	WorkerID    string      `json:"workerId,omitempty"`
	RunID       int         `json:"runId"`

	Routes []string `json:"-"`
}
