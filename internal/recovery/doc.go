// Package recovery fetches items whose original bytes are not available
// locally and transfers them once they arrive.
//
// Missing items are handed to a Collaborator in fixed-size chunks, each under
// its own timeout. A chunk that times out or fails is skipped and its items
// stay unrecorded for the next run. A collaborator that reports it could not
// get authorization to the library halts the run, because every later chunk
// would fail the same way.
package recovery
