package model

import "time"

// FailureKind classifies why an invocation attempt did not succeed.
type FailureKind string

const (
	FailureNone        FailureKind = ""
	FailureSpawn       FailureKind = "spawn_failure"
	FailureNonZeroExit FailureKind = "non_zero_exit"
	FailureOutputLimit FailureKind = "output_limit"
)

// Outcome is the result of one invocation attempt. Err is nil on success;
// stdout and stderr are kept in both cases.
type Outcome struct {
	Executable string
	Stdout     string
	Stderr     string
	ExitCode   int
	Kind       FailureKind
	Err        error
}

func (o Outcome) Success() bool {
	return o.Err == nil
}

// ErrorMessage is the failure message, or "" on success.
func (o Outcome) ErrorMessage() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// StructuredResult is the json object a script prints as its last line.
type StructuredResult map[string]any

// Succeeded reports the "success" flag of the result, if any.
func (r StructuredResult) Succeeded() bool {
	ok, _ := r["success"].(bool)
	return ok
}

func FailureResult(msg string) StructuredResult {
	return StructuredResult{"success": false, "error": msg}
}

// HistoryEntry records one gateway invocation.
type HistoryEntry struct {
	ID         string        `json:"id"`
	Operation  MessageType   `json:"operation"`
	Script     string        `json:"script"`
	Args       []string      `json:"args"`
	Executable string        `json:"executable"`
	Success    bool          `json:"success"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"startedAt"`
	Duration   time.Duration `json:"duration"`
}
