// Package domain defines the core types of the newsletter service.
//
// Types here are pure value objects shared between handlers, services,
// and repositories. They carry no database or HTTP dependencies.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No *sql.DB, no http.Request, no context.Context in struct fields
//   - JSON/DB tags are allowed (they're metadata, not behavior)
//   - Validation methods are allowed (they're pure functions on the type)
//   - Constants and enums belong here
package domain
