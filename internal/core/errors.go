package core

// errors.go maps technical errors to user-friendly messages with codes
// for support reference.
//
// Patterns are matched case-insensitively using strings.Contains. The
// first matching pattern wins, so more specific patterns come before
// general ones. When users report a code, support staff can look up the
// triggering pattern here; ERR000 means no pattern matched and the
// original error is only in the logs.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable
// guidance.
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
	// Parse errors (PRS001-PRS003)
	{
		pattern: "duplicate field name",
		msg: UserMessage{
			Message: "The header contains duplicate column names",
			Action:  "Rename the duplicated columns or supply explicit field names in the profile",
			Code:    "PRS002",
		},
	},
	{
		pattern: "field name at position",
		msg: UserMessage{
			Message: "A configured field name is empty",
			Action:  "Fill in or remove the blank entry in the profile's field_names",
			Code:    "PRS002",
		},
	},
	{
		pattern: "not supported in this execution context",
		msg: UserMessage{
			Message: "This profile's header and skip-row options are not supported here",
			Action:  "Use a profile without header or skip-row settings",
			Code:    "PRS003",
		},
	},
	{
		pattern: "unable to parse row",
		msg: UserMessage{
			Message: "A row could not be parsed",
			Action:  "Check the failed lines in the result for details",
			Code:    "PRS001",
		},
	},

	// Profile errors (PRF001)
	{
		pattern: "unknown profile",
		msg: UserMessage{
			Message: "The requested format profile does not exist",
			Action:  "List available profiles and check the spelling",
			Code:    "PRF001",
		},
	},

	// File errors (FILE001-FILE003)
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Split the file into smaller chunks or compress it with lz4",
			Code:    "FILE001",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Split the file into smaller chunks or compress it with lz4",
			Code:    "FILE001",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Upload a file with at least one data row",
			Code:    "FILE002",
		},
	},
	{
		pattern: "exceeds maximum line length",
		msg: UserMessage{
			Message: "An input line is too long",
			Action:  "Check the file for missing line breaks or binary content",
			Code:    "FILE003",
		},
	},

	// Ingest lifecycle errors (ING001-ING004)
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "The ingest was cancelled",
			Action:  "Start a new ingest when ready",
			Code:    "ING001",
		},
	},
	{
		pattern: "too many concurrent ingests",
		msg: UserMessage{
			Message: "System is busy processing other ingests",
			Action:  "Please wait a moment and try again",
			Code:    "ING002",
		},
	},
	{
		pattern: "ingest not found",
		msg: UserMessage{
			Message: "Ingest session not found",
			Action:  "The ingest may have expired. Start a new one",
			Code:    "ING003",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "The ingest timed out",
			Action:  "Try a smaller file or raise the ingest timeout",
			Code:    "ING004",
		},
	},

	// Record store errors (DB001-DB002)
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to reach the record store",
			Action:  "Please try again in a few moments",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "The record store connection was interrupted",
			Action:  "Please try again",
			Code:    "DB001",
		},
	},
	{
		pattern: "flush records",
		msg: UserMessage{
			Message: "Records could not be written to the store",
			Action:  "Please try again; contact support if the problem persists",
			Code:    "DB002",
		},
	},
	{
		pattern: "write record",
		msg: UserMessage{
			Message: "Records could not be written to the store",
			Action:  "Please try again; contact support if the problem persists",
			Code:    "DB002",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches the known patterns (case-insensitive) and returns the
// first match, or the ERR000 fallback.
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

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether an error matched a known pattern rather
// than the generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
