package core

// Error codes shown to users, grouped by category:
//
// # File Errors (CSV001-CSV099)
//
//	CSV001 - File too large
//	CSV002 - Empty file: nothing to import
//	CSV003 - No file selected
//	CSV004 - Invalid CSV upload form
//
// # Mapping Errors (MAP001-MAP099)
//
//	MAP001 - Invalid column mapping
//	MAP002 - Column not found in file
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - Too many imports in progress
//	IMP002 - Dataset already receiving an import
//	IMP003 - Import session expired or unknown
//	IMP004 - Import cancelled
//	IMP005 - Request timed out
//	IMP006 - Import step not allowed right now
//	IMP007 - Import run not found
//
// # Backend Errors (NET001-NET099)
//
//	NET001 - Backend unreachable
//	NET002 - Backend rejected the request
//	NET003 - Not authorized by backend
//	NET004 - Dataset not found
//
// # Preference Errors
//
//	SET001 - Invalid preferences
//
// # Preset Errors
//
//	PRE001 - Invalid mapping preset
//	PRE002 - Preset not found
//	PRE003 - Preset name already used
//
// # Request Errors
//
//	REQ001 - Request body could not be read
//
// # Rate Limiting
//
//	RATE001 - Too many requests
//
// # Default
//
//	ERR000 - Unknown error; check the server log for the technical error.
//
// Sentinel errors are checked with errors.Is before falling back to
// case-insensitive substring patterns. The first match wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

type sentinelMessage struct {
	err error
	msg UserMessage
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgFileTooLarge = UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Split the file into smaller files and import them one at a time",
		Code:    "CSV001",
	}
	msgEmptyFile = UserMessage{
		Message: "The file has no rows to import",
		Action:  "Check that the file contains data below the header row",
		Code:    "CSV002",
	}
	msgInvalidMapping = UserMessage{
		Message: "The column mapping is not valid",
		Action:  "Choose one input column and make sure no column is used twice",
		Code:    "MAP001",
	}
	msgColumnNotFound = UserMessage{
		Message: "A mapped column does not exist in the file",
		Action:  "Pick columns from the file preview",
		Code:    "MAP002",
	}
	msgTooManyImports = UserMessage{
		Message: "System is busy processing other imports",
		Action:  "Please wait a moment and try again",
		Code:    "IMP001",
	}
	msgDatasetBusy = UserMessage{
		Message: "This dataset is already receiving an import",
		Action:  "Wait for the running import to finish",
		Code:    "IMP002",
	}
	msgCancelled = UserMessage{
		Message: "Import was cancelled",
		Action:  "Start a new import when ready",
		Code:    "IMP004",
	}
	msgTimeout = UserMessage{
		Message: "Request timed out",
		Action:  "Check your connection and try again",
		Code:    "IMP005",
	}
	msgInvalidPreset = UserMessage{
		Message: "The mapping preset is not valid",
		Action:  "Give the preset a name and map columns from the file",
		Code:    "PRE001",
	}
	msgPresetNotFound = UserMessage{
		Message: "Mapping preset not found",
		Action:  "Refresh the preset list",
		Code:    "PRE002",
	}
	msgPresetExists = UserMessage{
		Message: "A preset with this name already exists",
		Action:  "Choose another name or update the existing preset",
		Code:    "PRE003",
	}
	msgBackendRejected = UserMessage{
		Message: "The dataset service rejected the request",
		Action:  "Review the request details and try again",
		Code:    "NET002",
	}
)

// sentinelMessages are checked in order with errors.Is.
var sentinelMessages = []sentinelMessage{
	{ErrFileTooLarge, msgFileTooLarge},
	{ErrEmptyContent, msgEmptyFile},
	{ErrInvalidPreset, msgInvalidPreset},
	{ErrPresetNotFound, msgPresetNotFound},
	{ErrPresetExists, msgPresetExists},
	{ErrInvalidMapping, msgInvalidMapping},
	{ErrTooManyImports, msgTooManyImports},
	{ErrDatasetBusy, msgDatasetBusy},
	{context.Canceled, msgCancelled},
	{context.DeadlineExceeded, msgTimeout},
}

// errorPatterns match wrapped errors whose sentinel was lost, such as
// messages relayed from another process. Specific patterns come first.
var errorPatterns = []errorPattern{
	{"file too large", msgFileTooLarge},
	{"nothing to import", msgEmptyFile},
	{"no file provided", UserMessage{
		Message: "No file was selected",
		Action:  "Please select a CSV file to import",
		Code:    "CSV003",
	}},
	{"multipart", UserMessage{
		Message: "The upload form could not be read",
		Action:  "Select the file again and resubmit",
		Code:    "CSV004",
	}},
	{"invalid preset", msgInvalidPreset},
	{"preset not found", msgPresetNotFound},
	{"preset already exists", msgPresetExists},
	{"column not found", msgColumnNotFound},
	{"invalid column mapping", msgInvalidMapping},
	{"too many concurrent imports", msgTooManyImports},
	{"already importing", msgDatasetBusy},
	{"session not found", UserMessage{
		Message: "Import session not found",
		Action:  "The session may have expired. Upload the file again",
		Code:    "IMP003",
	}},
	{"context canceled", msgCancelled},
	{"context deadline exceeded", msgTimeout},
	{"invalid transition", UserMessage{
		Message: "That step is not available right now",
		Action:  "Finish or reset the current import first",
		Code:    "IMP006",
	}},
	{"import run not found", UserMessage{
		Message: "Import run not found",
		Action:  "Refresh the import history",
		Code:    "IMP007",
	}},
	{"invalid preferences", UserMessage{
		Message: "The preferences are not valid",
		Action:  "Check the values and save again",
		Code:    "SET001",
	}},
	{"connection refused", UserMessage{
		Message: "Unable to reach the dataset service",
		Action:  "Please try again in a few moments",
		Code:    "NET001",
	}},
	{"status 401", UserMessage{
		Message: "Not authorized by the dataset service",
		Action:  "Check the configured API key",
		Code:    "NET003",
	}},
	{"status 403", UserMessage{
		Message: "Not authorized by the dataset service",
		Action:  "Check the configured API key",
		Code:    "NET003",
	}},
	{"status 404", UserMessage{
		Message: "Dataset not found",
		Action:  "Refresh the dataset list and pick another dataset",
		Code:    "NET004",
	}},
	{"rate limit", UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}},
	{"permanent", msgBackendRejected},
	{"invalid request", UserMessage{
		Message: "The request could not be read",
		Action:  "Check the request body and try again",
		Code:    "REQ001",
	}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-facing message. It returns
// the zero UserMessage for a nil error and ERR000 when nothing matches.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	// Pattern hits on the text win for status-specific backend errors,
	// which all share ErrPermanent.
	if errors.Is(err, ErrPermanent) {
		for _, ep := range errorPatterns {
			if strings.HasPrefix(ep.pattern, "status ") && strings.Contains(errStr, ep.pattern) {
				return ep.msg
			}
		}
		return msgBackendRejected
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.err) {
			if sm.err == ErrInvalidMapping && strings.Contains(errStr, "column not found") {
				return msgColumnNotFound
			}
			return sm.msg
		}
	}

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something other than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
