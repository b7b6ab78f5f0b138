package probe

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Output constants.
const (
	PercentageMultiplier = 100
	directoryPermission  = 0750
	logFilePermission    = 0600
)
