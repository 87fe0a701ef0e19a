// Package odrl provides the fixed ODRL 2.2 core vocabulary used to ground
// generated policies.
//
// Generated documents may only reference terms defined here plus the per-run
// terms declared in a Vocabulary. Anything else is a grounding failure and is
// rejected before the document ever reaches structural validation.
package odrl
