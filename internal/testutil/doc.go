// Package testutil provides deterministic collaborators for import tests:
// fixed random sources, an in-memory column reader, a stub converter and
// synthetic distributions.
package testutil
