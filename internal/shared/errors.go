package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Record store errors
	ErrStoreUnavailable = fmt.Errorf("record store unavailable")
	ErrConnectionLost   = fmt.Errorf("connection lost")
	ErrEntityNotFound   = fmt.Errorf("entity not found")
	ErrNamespaceUnknown = fmt.Errorf("namespace not found")

	// Planning and reconciliation errors
	ErrPlanningFailed    = fmt.Errorf("planning failed")
	ErrPlanningDegraded  = fmt.Errorf("reference metadata unreadable")
	ErrAmbiguousMatch    = fmt.Errorf("no candidate above confidence threshold")
	ErrReservedContainer = fmt.Errorf("reserved container")
	ErrPlatformOwned     = fmt.Errorf("platform-owned record")
	ErrDuplicateTarget   = fmt.Errorf("target container already exists")

	// Session errors
	ErrSessionNotFound = fmt.Errorf("session not found")
	ErrSessionClosed   = fmt.Errorf("session already closed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
