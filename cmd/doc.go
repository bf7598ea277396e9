// Package cmd implements the command-line interface for the tern table
// store client. It provides a hierarchical command structure for managing
// tables and working with their data.
//
// The package is organized into several subpackages:
//
//   - table: Commands for table operations (create, get, put, range, etc.)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See tern -help for a list of all commands.
package cmd
