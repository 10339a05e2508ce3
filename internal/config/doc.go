// Package config defines the format-agnostic shell configuration model,
// along with the Loader and Converter interfaces used to read it.
//
// The Model describes what the shell preloads, which hotkeys it binds and
// the window defaults. Concrete implementations of the interfaces, such as
// for HCL, are provided in separate packages.
package config
