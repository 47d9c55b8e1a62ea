package exitcodes

// Exit codes for the dirkit CLI. Scripts branch on these.
const (
	Success         = 0 // Successful execution
	Failure         = 1 // Generic failure; also "exists" on a missing path
	InvalidConfig   = 2 // Configuration file invalid or missing
	InvalidArgument = 3 // A flag or argument was rejected before any I/O
	RuntimeError    = 4 // Runtime error during execution
)
