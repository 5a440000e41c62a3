package orchestrator

import "errors"

// Submit-time failures are synchronous and surfaced to the caller. Dispatch
// failures never are; they end up on the targets and in the aggregate status.
var (
	ErrValidation         = errors.New("post must have text or at least one media attachment")
	ErrNoTargets          = errors.New("no target accounts and no linked accounts to default to")
	ErrAccountNotLinked   = errors.New("account is not linked to this user")
	ErrAccountRevoked     = errors.New("account has been revoked")
	ErrMediaNotReady      = errors.New("media not ready before deadline")
	ErrSchedulingConflict = errors.New("post is already dispatching")
	ErrPostTerminal       = errors.New("post already reached a terminal status")
	ErrPostNotFound       = errors.New("post not found")
)
