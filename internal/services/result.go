package services

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/Riboost-Studio/traceability-label-bridge/internal/model"
)

// ParseFailureMessage is the error of a structured result whose last line is
// not a json object.
const ParseFailureMessage = "Failed to parse Python output"

// InterpretPlain returns stdout, else stderr. A failed outcome becomes an
// error carrying stderr, else stdout, else the failure message.
func InterpretPlain(out model.Outcome) (string, error) {
	if !out.Success() {
		switch {
		case out.Stderr != "":
			return "", errors.New(out.Stderr)
		case out.Stdout != "":
			return "", errors.New(out.Stdout)
		default:
			return "", errors.New(out.ErrorMessage())
		}
	}
	if out.Stdout != "" {
		return out.Stdout, nil
	}
	return out.Stderr, nil
}

// InterpretStructured parses the last non-blank line of stdout as a json
// object. Lines before it are ignored. It never fails: unparsable output is
// returned as a failure result that keeps stdout.
func InterpretStructured(stdout string) model.StructuredResult {
	result, err := parseLastLine(stdout)
	if err != nil {
		return model.StructuredResult{
			"success": false,
			"error":   ParseFailureMessage,
			"output":  stdout,
		}
	}
	return result
}

// InterpretExecution maps a structured-mode outcome to its result.
func InterpretExecution(out model.Outcome) model.StructuredResult {
	if !out.Success() {
		if msg := strings.TrimSpace(out.Stderr); msg != "" {
			return model.FailureResult(msg)
		}
		return model.FailureResult(out.ErrorMessage())
	}
	return InterpretStructured(out.Stdout)
}

func parseLastLine(stdout string) (model.StructuredResult, error) {
	trimmed := strings.TrimRight(stdout, " \t\r\n")
	line := trimmed
	if i := strings.LastIndexByte(trimmed, '\n'); i >= 0 {
		line = trimmed[i+1:]
	}
	line = strings.TrimSpace(line)

	var result model.StructuredResult
	if err := json.Unmarshal([]byte(line), &result); err != nil {
		return nil, err
	}
	if result == nil {
		return nil, errors.New("last line is not a json object")
	}
	return result, nil
}
