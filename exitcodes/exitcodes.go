// Package exitcodes defines the standard exit codes used by scenario-acceptor.
package exitcodes

// Exit code constants used by scenario-acceptor:
//
// * Success (0): Used when every unit in the run passed
// * TestFailure (1): Used when one or more units did not pass
// * RuntimeErr (2): Used for runtime errors such as panics, bad configuration or crashes
const (
	Success     = 0
	TestFailure = 1
	RuntimeErr  = 2
)
