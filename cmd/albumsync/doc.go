// Package main hosts the albumsync CLI entrypoint and command graph.
//
// The Cobra-based command tree resolves configuration, wires the ledger,
// library adapter, credential provider and remote client together, and hands
// them to the sync engine. Subcommands cover the sync run itself, a ledger
// status report, OAuth login and logout, configuration scaffolding, and an
// environment check.
//
// Keep this package lean: behaviour belongs in the internal packages, and the
// commands here only translate flags into calls and results into tables.
package main
