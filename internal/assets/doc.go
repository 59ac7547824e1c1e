// Package assets maps logical clip sources to filesystem paths and resolves
// font family names to font files.
//
// Resolution failures are deliberately non-fatal: a missing asset produces a
// warning and an empty path, and the compiler omits that clip's visual
// contribution instead of failing the job.
package assets
