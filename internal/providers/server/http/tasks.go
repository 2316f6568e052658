package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/crmarques/cement/debugctx"
	"github.com/crmarques/cement/entity"
)

const (
	taskStateStopped = "stopped"
	taskStatePaused  = "paused"
	taskResultError  = "error"
)

// foremanTask is the subset of a foreman-tasks document needed to follow an
// asynchronous action to completion.
type foremanTask struct {
	ID              string
	Label           string
	State           string
	Result          string
	HumanizedErrors []string
	Input           map[string]any
}

func parseTask(document map[string]any) (*foremanTask, bool) {
	id, ok := document["id"].(string)
	if !ok || strings.TrimSpace(id) == "" {
		return nil, false
	}
	state, ok := document["state"].(string)
	if !ok {
		return nil, false
	}

	task := &foremanTask{ID: id, State: state}
	task.Label, _ = document["label"].(string)
	task.Result, _ = document["result"].(string)
	task.Input, _ = document["input"].(map[string]any)
	if humanized, ok := document["humanized"].(map[string]any); ok {
		task.HumanizedErrors = stringList(humanized["errors"])
	}
	return task, true
}

func (t *foremanTask) finished() bool {
	return t.State == taskStateStopped || t.State == taskStatePaused
}

func (t *foremanTask) failed() bool {
	return t.State == taskStatePaused || t.Result == taskResultError
}

// subjectID returns the id of the entity the task acted upon, when the task
// input names it.
func (t *foremanTask) subjectID(schema entity.Schema) (int64, bool) {
	if t == nil || t.Input == nil {
		return 0, false
	}
	subject, ok := t.Input[schema.PayloadKey].(map[string]any)
	if !ok {
		return 0, false
	}
	id, ok := subject["id"].(int64)
	return id, ok && id > 0
}

func (t *foremanTask) failure() error {
	detail := strings.Join(t.HumanizedErrors, "; ")
	if detail == "" {
		detail = "result " + t.Result
	}
	label := t.Label
	if label == "" {
		label = "task"
	}
	return conflictError(fmt.Sprintf("%s %s finished in state %s: %s", label, t.ID, t.State, detail), nil)
}

// settle returns the response record, or waits for the task when the server
// answered with an accepted asynchronous action.
func (g *EntityServerGateway) settle(ctx context.Context, response remoteResponse) (map[string]any, *foremanTask, error) {
	record, err := decodeRecord(response.body)
	if err != nil {
		return nil, nil, err
	}
	if response.statusCode != http.StatusAccepted {
		return record, nil, nil
	}

	task, ok := parseTask(record)
	if !ok {
		return record, nil, nil
	}
	finished, err := g.waitForTask(ctx, task)
	if err != nil {
		return nil, nil, err
	}
	return record, finished, nil
}

func (g *EntityServerGateway) waitForTask(ctx context.Context, task *foremanTask) (*foremanTask, error) {
	deadline := time.Now().Add(g.taskTimeout)
	current := task
	for {
		if current.finished() {
			if current.failed() {
				return nil, current.failure()
			}
			if current.Input == nil {
				current.Input = task.Input
			}
			return current, nil
		}
		if !time.Now().Before(deadline) {
			return nil, connectionError(
				fmt.Sprintf("task %s did not finish within %s (state %s)", current.ID, g.taskTimeout, current.State),
				nil,
			)
		}

		debugctx.Printf(ctx, "waiting for task id=%q state=%q", current.ID, current.State)
		timer := time.NewTimer(g.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, connectionError(fmt.Sprintf("waiting for task %s aborted", current.ID), ctx.Err())
		case <-timer.C:
		}

		response, err := g.execute(ctx, requestSpec{
			purpose: "task",
			method:  http.MethodGet,
			path:    tasksPath + "/" + current.ID,
		})
		if err != nil {
			return nil, err
		}
		document, err := decodeRecord(response.body)
		if err != nil {
			return nil, err
		}
		next, ok := parseTask(document)
		if !ok {
			return nil, connectionError(fmt.Sprintf("task %s response is not a task document", current.ID), nil)
		}
		current = next
	}
}
