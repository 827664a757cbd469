// Package ledger records announced issues. The ledger is append-only:
// issues are never mutated or deleted, and remain retrievable by ID after
// their newsletter is gone. Issue IDs come from a storage-layer sequence,
// so they are strictly unique and monotonic; gaps from failed attempts are
// acceptable.
package ledger
