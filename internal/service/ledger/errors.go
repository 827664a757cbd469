package ledger

import "errors"

// Sentinel errors for the ledger service layer.
var (
	ErrUnknownNewsletter = errors.New("newsletter does not exist or has been deleted")
	ErrIssueNotFound     = errors.New("issue not found")
)
