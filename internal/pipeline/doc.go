// Package pipeline runs the bootstrap stages of the shell. Stages declare
// what they depend on; the pipeline starts each one as soon as its
// dependencies finished, aborts on the first mandatory failure and flips the
// readiness flag only when everything succeeded.
package pipeline
