// Package services defines the error taxonomy shared by the render pipeline.
//
// Each sentinel marks one failure class so callers can classify terminal job
// errors with errors.Is without string matching.
package services
