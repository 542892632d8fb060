// Package deps checks that the external binaries albumsync shells out to are
// installed.
package deps
