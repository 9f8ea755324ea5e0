// Package sandbox runs generated routines inside a unicorn x86-64 emulator instead of on
// the host CPU. The read and write system calls of the routine are served from an
// io.Reader and an io.Writer, so programs can be executed on any host and with a bound on
// the number of executed instructions.
//
// The package needs the unicorn shared library and is only built with the unicorn tag.
package sandbox
