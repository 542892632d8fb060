// Package preflight provides readiness checks for the filesystem paths,
// credentials and remote service albumsync depends on.
//
// These checks run in two contexts:
//   - "albumsync sync" calls RunAll before computing the backlog and refuses
//     to start when a check fails.
//   - "albumsync doctor" runs every check, including CheckRemote and the
//     external binary checks, and prints the results.
package preflight
