package registry

import "errors"

// Sentinel errors for the registry service layer.
var (
	ErrNotFound      = errors.New("newsletter not found")
	ErrDuplicateName = errors.New("newsletter name already in use")
	ErrMainPageInUse = errors.New("main page already used by another newsletter")
)
