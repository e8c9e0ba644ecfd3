package attendance

import "github.com/remshq/rems/core"

// Machine-readable error codes surfaced to API clients.
var (
	ErrForbidden           = core.NewCodedError("forbidden", "permission denied")
	ErrIdentifierRequired  = core.NewCodedError("candidate_identifier_required", "candidate_id or candidate_ids is required")
	ErrInvalidFormat       = core.NewCodedError("invalid_format", "invalid time format, expected HH:MM:SS")
	ErrInvalidDateFormat   = core.NewCodedError("invalid_date_format", "invalid date format, expected YYYY-MM-DD")
	ErrCandidateNotFound   = core.NewCodedError("candidate_not_found", "candidate not found")
	ErrDuplicateCheckIn    = core.NewCodedError("duplicate_check_in", "already checked in for this event and date")
	ErrDuplicateCheckOut   = core.NewCodedError("duplicate_check_out", "already checked out for this event and date")
	ErrLogNotFound         = core.NewCodedError("attendance_log_not_found", "attendance log not found")
	ErrInvalidTimeOrder    = core.NewCodedError("invalid_time_order", "check-out time cannot precede check-in time")
	ErrEventNotFound       = core.NewCodedError("event_not_found", "event not found")
)
