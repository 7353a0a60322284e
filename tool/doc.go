// Package tool is the command adapter between remote callers and the external CDP
// sound-processing programs.
//
// The package is split by concern:
//   - command: the immutable token sequence and the verbatim result record
//   - resolver: tool-root lookup and the emulation prefix
//   - executor: one spawn per call, streams captured, exit status passed through
//   - usage, paramfile, spectral: thin operations built on the executor
//   - directory: the static category table and the installed-program scan
//   - observability, history: execution observers
//
// Nothing here interprets a command or its output. A non-zero exit status is data.
package tool
