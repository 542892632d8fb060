// Package osxphotos wraps the osxphotos command line tool used to read the
// macOS Photos library.
//
// The client lists shared albums and their members and exports originals by
// UUID, optionally downloading originals that only exist in iCloud. Command
// execution goes through the Executor interface so tests never spawn
// processes.
package osxphotos
