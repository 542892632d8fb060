// Package transfer moves one local file into one remote album.
//
// A transfer has two phases. The upload phase posts the raw bytes and
// receives an upload token; it is retried on rate limiting, server errors and
// network failures. The commit phase attaches the token to the album with
// batchCreate; it is retried only on rate limiting and server errors, because
// a commit whose response was lost may already have been applied and
// repeating it could add the item twice. Each phase has its own retry budget.
//
// The pipeline is stateless: it neither writes the ledger nor removes the
// local file.
package transfer
