// Package operations runs the sift pipeline as a sequence of steps.
//
// A run is described by an OperationRequest: the uploaded dataset, the
// compiled keyword matcher, the name lookup, the classifier settings and
// the gender order. BuildSteps turns the gender order into steps:
//
//	before: gender(all) -> filter
//	after:  filter -> gender(matched)
//	off:    filter
//
// Manager executes the steps in order on the caller's goroutine. A step
// that cannot apply to the data returns a SkipError; the step is marked
// skipped, its condition is reported on the OperationState and the run
// continues. Any other error fails the run.
//
// Every run gets its own gender.Resolver, so name memos never leak
// between uploads.
package operations
