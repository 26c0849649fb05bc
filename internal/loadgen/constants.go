package loadgen

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	PercentageMultiplier = 100
	DefaultRequests      = 1000
	DefaultWorkers       = 8
)

// Submission outcomes.
const (
	outcomeSuccess     = "success"
	outcomeRejected    = "rejected"
	outcomeRateLimited = "rate_limited"
	outcomeFailed      = "failed"
)
