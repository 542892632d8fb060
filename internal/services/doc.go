// Package services defines shared plumbing consumed by the sync engine and its
// external integrations.
//
// Context helpers stamp run IDs, destination titles, and item IDs so log lines
// can be correlated. The error markers plus Wrap and Classify sort failures
// into transient (retry in place), item-scoped (skip and continue), and fatal
// (halt the run) so every component reports failures the same way.
package services
