// Package membership persists the publisher and subscriber sets per
// newsletter. Membership is a set, not a multiset: toggles are idempotent
// and report whether they changed anything rather than erroring on no-ops.
package membership
