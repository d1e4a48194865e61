// Package report provides output writers for generation runs.
//
// This package contains writers for different output formats:
//   - MarkdownWriter: the llms.txt document itself
//   - JSONWriter: the full run as JSON for tool integration
//   - SimpleWriter: a human-readable summary for terminal display
//
// Design decision: We separate report writing from the data structures
// (which are in the model package) to follow the single responsibility
// principle. This allows adding new output formats without modifying
// the core data structures.
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
