// Package types defines the Ledger interface, record and candidate types,
// board configuration, and standard error types for the pin agent.
package types
