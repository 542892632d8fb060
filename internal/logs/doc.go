// Package logs reads the albumsync log file for the `albumsync logs` command.
//
// Tail returns the last N matching lines with bounded memory and the offset
// to resume from; follow mode polls for appended lines until the context ends.
// RunFilter narrows output to one sync run in either log format.
package logs
