// Package newsletter implements the orchestrating façade over the registry,
// membership, and ledger services. It is the only package application code
// (HTTP handlers, CLI tools, the feed importer) calls directly.
//
// Every operation takes an explicit domain.Actor; there is no ambient
// "current user". Permission checks are consolidated here: identity and
// authorization come from the Identity collaborator, side effects go to the
// AuditLogger and NotificationDispatcher collaborators. The durable state
// change always completes before a call returns; notification delivery is
// best-effort and never rolls anything back.
package newsletter
