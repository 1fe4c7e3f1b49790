package domain

import "errors"

var (
	ErrEmptyInput        = errors.New("empty input")
	ErrNotFound          = errors.New("not found")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrAnchorUnavailable = errors.New("anchor unavailable")
	ErrAnchorRejected    = errors.New("anchor rejected submission")
	ErrSealInProgress    = errors.New("seal in progress")
	ErrPolicyDenied      = errors.New("policy denied")
	ErrAlreadyDeleted    = errors.New("artifact deleted")
)
