// Package render executes render jobs: it drives a timeline through
// validation, merge-field substitution, asset resolution, and graph
// compilation, then supervises the encoder process and records the outcome
// in the job store.
package render
