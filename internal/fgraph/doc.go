// Package fgraph compiles a validated timeline into an encoder command.
//
// Compilation is split into two boundaries: the compiler walks tracks and
// clips in array order and produces an inspectable list of filter-graph nodes
// threaded through stream labels, and the emitter serializes that graph plus
// global options into the exact ffmpeg argument list. Tests exercise the graph
// without ever invoking the encoder.
package fgraph
