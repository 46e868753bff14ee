// Package toolcalls implements the tool-call log named in spec.md §3/§6:
// start/record/success/error/get/getRecent over the tool_calls table.
package toolcalls

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/ozanturksever/agentfs/pkg/store"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Call is one row of tool_calls.
type Call struct {
	ID          int64
	Name        string
	Parameters  string
	Result      string
	Error       string
	Status      Status
	StartedAt   int64
	CompletedAt *int64
	DurationMs  *int64
}

type row struct {
	ID          int64  `xorm:"pk autoincr 'id'"`
	Name        string `xorm:"'name'"`
	Parameters  string `xorm:"'parameters'"`
	Result      string `xorm:"'result'"`
	Error       string `xorm:"'error'"`
	Status      string `xorm:"'status'"`
	StartedAt   int64  `xorm:"'started_at'"`
	CompletedAt *int64 `xorm:"'completed_at'"`
	DurationMs  *int64 `xorm:"'duration_ms'"`
}

func toCall(r row) Call {
	return Call{
		ID:          r.ID,
		Name:        r.Name,
		Parameters:  r.Parameters,
		Result:      r.Result,
		Error:       r.Error,
		Status:      Status(r.Status),
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
		DurationMs:  r.DurationMs,
	}
}

type Log struct {
	db *store.Store
}

func New(db *store.Store) *Log {
	return &Log{db: db}
}

// Start records a new pending call and returns its row id.
func (l *Log) Start(name string, params interface{}) (int64, error) {
	buf, err := json.Marshal(params)
	if err != nil {
		return 0, errors.Wrap(err, "encode tool call parameters")
	}
	res, err := l.db.Exec(
		`INSERT INTO tool_calls(name, parameters, status, started_at) VALUES(?,?,?,?)`,
		name, string(buf), string(StatusPending), store.NowUnix(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (l *Log) complete(id int64, status Status, result, errMsg string) error {
	var r row
	found, err := l.db.Get(&r, `SELECT id, name, parameters, result, error, status, started_at, completed_at, duration_ms FROM tool_calls WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if !found {
		return errors.Errorf("tool call %d not found", id)
	}
	now := store.NowUnix()
	duration := (now - r.StartedAt) * 1000
	_, err = l.db.Exec(
		`UPDATE tool_calls SET status = ?, result = ?, error = ?, completed_at = ?, duration_ms = ? WHERE id = ?`,
		string(status), result, errMsg, now, duration, id,
	)
	return err
}

// RecordSuccess marks a call complete with a JSON-encoded result.
func (l *Log) RecordSuccess(id int64, result interface{}) error {
	buf, err := json.Marshal(result)
	if err != nil {
		return errors.Wrap(err, "encode tool call result")
	}
	return l.complete(id, StatusSuccess, string(buf), "")
}

// RecordError marks a call complete with an error message.
func (l *Log) RecordError(id int64, callErr error) error {
	msg := ""
	if callErr != nil {
		msg = callErr.Error()
	}
	return l.complete(id, StatusError, "", msg)
}

// Get fetches a single call by id.
func (l *Log) Get(id int64) (Call, bool, error) {
	var r row
	found, err := l.db.Get(&r, `SELECT id, name, parameters, result, error, status, started_at, completed_at, duration_ms FROM tool_calls WHERE id = ?`, id)
	if err != nil || !found {
		return Call{}, found, err
	}
	return toCall(r), true, nil
}

// GetRecent returns the most recently started calls, newest first.
func (l *Log) GetRecent(limit int) ([]Call, error) {
	var rows []row
	if err := l.db.Find(&rows, `SELECT id, name, parameters, result, error, status, started_at, completed_at, duration_ms FROM tool_calls ORDER BY started_at DESC, id DESC LIMIT ?`, limit); err != nil {
		return nil, err
	}
	out := make([]Call, len(rows))
	for i, r := range rows {
		out[i] = toCall(r)
	}
	return out, nil
}
