// Package syncer drives a sync run.
//
// Plan reads the library and computes the backlog. Execute walks the plan one
// destination at a time: it resolves the remote album, exports and transfers
// each item, records confirmed transfers in the ledger and hands items whose
// bytes are not local to missing-item recovery. Item failures are logged and
// counted; only fatal conditions (authorization, unreadable library, ledger
// writes, cancellation) stop the run.
package syncer
