// Package registry owns newsletter identity: names, descriptions, and home
// page references. It enforces uniqueness of name and main page among live
// newsletters and drives the membership cascade on deletion.
//
// The service layer depends on the Repository interface defined in this
// package and should never import from api/. Repository implementations
// live in repository/postgres/.
package registry
