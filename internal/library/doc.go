// Package library reads the local, authoritative media library.
//
// Two adapters implement Library: the photos adapter reads macOS Photos shared
// albums through osxphotos, and the directory adapter treats every sub-folder
// of a root directory as a shared collection. Both export items by copying
// their original bytes into a caller-owned directory; an item whose bytes are
// not available locally exports nothing and is left for missing-item recovery.
package library
