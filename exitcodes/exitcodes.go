// Package exitcodes defines the exit codes of op-spec binaries.
package exitcodes

// * Success (0): every selected case passed, or the cases were only listed
// * TestFailure (1): a case failed, or focus markers are present with fail-on-focus enabled
// * RuntimeErr (2): configuration errors, nothing selected under focus, I/O failures
const (
	Success     = 0
	TestFailure = 1
	RuntimeErr  = 2
)
