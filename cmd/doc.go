// Package cmd implements the command-line interface of stash. It wires the
// persistence library to a configured backend so that state can be
// rehydrated, changed and inspected from the shell.
//
// The package is organized into several subpackages:
//
//   - run: Rehydrates the state, applies actions read from stdin and persists them
//   - state: Commands inspecting the persisted blobs (get, keys, reset)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// All flags can also be set as STASH_<FLAG> environment variables or in a
// .env / .env.local file. See stash -help for a list of all commands.
package cmd
