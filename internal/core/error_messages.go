package core

// error_messages.go maps technical errors from the pipeline plumbing to
// user-friendly messages with codes for support reference.
//
// # Run Errors (RUN001-RUN099)
//
//	RUN001 - Busy: Another run is in progress
//	         Patterns: "run already in progress"
//	RUN002 - Cancelled: The run was cancelled
//	         Patterns: "context canceled"
//	RUN003 - Timed out: The run exceeded its time limit
//	         Patterns: "context deadline exceeded"
//	RUN004 - No result: No run has completed yet
//	         Patterns: "no completed run"
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Connection refused
//	DB002 - Connection reset
//	DB003 - Constraint violated by cleaned data
//	DB004 - Deadlock
//	DB005 - Timeout
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Missing column: a required column is absent from an input file
//	VAL002 - Malformed CSV: rows with inconsistent quoting or field counts
//	VAL003 - Unknown check: the requested validator does not exist
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - Missing file
//	FILE002 - Empty file (no header row)
//	FILE003 - Encoding error
//	FILE004 - Permission denied
//
// Patterns are matched case-insensitively, first match wins, so the more
// specific run patterns are listed before the generic database ones.

import (
	"fmt"
	"strings"
)

// UserMessage is the user-facing description of an error.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{
		pattern: "run already in progress",
		msg: UserMessage{
			Message: "Another pipeline run is in progress",
			Action:  "Wait for it to finish and try again",
			Code:    "RUN001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "The pipeline run was cancelled",
			Action:  "Start a new run when ready",
			Code:    "RUN002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "The pipeline run timed out",
			Action:  "Raise PIPELINE_RUN_TIMEOUT or reduce the input size",
			Code:    "RUN003",
		},
	},
	{
		pattern: "no completed run",
		msg: UserMessage{
			Message: "No pipeline run has completed yet",
			Action:  "Trigger a run first",
			Code:    "RUN004",
		},
	},

	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Check DATABASE_URL and that the database is running",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates",
		msg: UserMessage{
			Message: "Cleaned data violates a database constraint",
			Action:  "Check the output table definitions against the cleaned schema",
			Code:    "DB003",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB004",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB005",
		},
	},

	{
		pattern: "missing required columns",
		msg: UserMessage{
			Message: "Required column is missing from an input file",
			Action:  "Check that all required columns are present in the header row",
			Code:    "VAL001",
		},
	},
	{
		pattern: "wrong number of fields",
		msg: UserMessage{
			Message: "Input file is not a valid CSV",
			Action:  "Ensure the file is comma-separated with consistent columns",
			Code:    "VAL002",
		},
	},
	{
		pattern: "bare \" in non-quoted-field",
		msg: UserMessage{
			Message: "Input file is not a valid CSV",
			Action:  "Ensure quoted fields are properly escaped",
			Code:    "VAL002",
		},
	},
	{
		pattern: "unknown check",
		msg: UserMessage{
			Message: "The requested check does not exist",
			Action:  "Use one of the check names listed in the report",
			Code:    "VAL003",
		},
	},

	{
		pattern: "no such file",
		msg: UserMessage{
			Message: "An input file is missing",
			Action:  "Place customers.csv, accounts.csv and transactions.csv in PIPELINE_INPUT_DIR",
			Code:    "FILE001",
		},
	},
	{
		pattern: "file does not exist",
		msg: UserMessage{
			Message: "An input file is missing",
			Action:  "Place customers.csv, accounts.csv and transactions.csv in PIPELINE_INPUT_DIR",
			Code:    "FILE001",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "An input file is empty",
			Action:  "Provide a header row and data rows",
			Code:    "FILE002",
		},
	},
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "An input file contains invalid characters",
			Action:  "Save the file as UTF-8",
			Code:    "FILE003",
		},
	},
	{
		pattern: "permission denied",
		msg: UserMessage{
			Message: "A file could not be read or written",
			Action:  "Check permissions on the input and output directories",
			Code:    "FILE004",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the logs for details",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches through known error patterns (case-insensitive) and returns
// the first match. If no pattern matches, a generic fallback message with
// code ERR000 is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-friendly message.
// The original error is preserved for logging.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
