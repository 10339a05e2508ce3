// Package hcl provides the concrete HCL implementation of the config.Loader
// and config.Converter interfaces. It reads shell.hcl, translates its blocks
// into the config model and evaluates preload file expressions once the
// bootstrap knows its roots.
package hcl
