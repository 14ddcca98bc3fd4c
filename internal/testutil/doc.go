// Package testutil holds deterministic stand-ins used by tests and the
// scenario harness: a resettable logical clock and commit ID generators.
package testutil
