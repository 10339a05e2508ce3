// Package app contains the shell's application logic. It wires the
// bootstrap stages into a pipeline, serves the local HTTP and IPC endpoints
// and owns the lifecycle, decoupled from any specific entrypoint like a CLI.
package app
