package present

// Result is the device-independent outcome of a queue, fence or swapchain call.
type Result int

const (
	Success Result = iota
	Suboptimal
	OutOfDate
	Timeout
	NotReady
	DeviceLost
	OutOfHostMemory
	OutOfDeviceMemory
	SurfaceLost
	Unknown
)

func (r Result) String() string {
	switch r {
	case Success:
		return "VK_SUCCESS"
	case Suboptimal:
		return "VK_SUBOPTIMAL_KHR"
	case OutOfDate:
		return "VK_ERROR_OUT_OF_DATE_KHR"
	case Timeout:
		return "VK_TIMEOUT"
	case NotReady:
		return "VK_NOT_READY"
	case DeviceLost:
		return "VK_ERROR_DEVICE_LOST"
	case OutOfHostMemory:
		return "VK_ERROR_OUT_OF_HOST_MEMORY"
	case OutOfDeviceMemory:
		return "VK_ERROR_OUT_OF_DEVICE_MEMORY"
	case SurfaceLost:
		return "VK_ERROR_SURFACE_LOST_KHR"
	}
	return "VK_ERROR_UNKNOWN"
}

// outcome is how the frame loop reacts to a Result.
type outcome int

const (
	outcomeOK outcome = iota
	// proceed with the frame, recreate after presenting
	outcomeSuboptimal
	// the swapchain no longer matches the surface
	outcomeRecreate
	outcomeFatal
)

func classifyAcquire(r Result) outcome {
	switch r {
	case Success:
		return outcomeOK
	case Suboptimal:
		return outcomeSuboptimal
	case OutOfDate:
		return outcomeRecreate
	}
	return outcomeFatal
}

// classifyPresent folds suboptimal into recreate: the frame is already queued.
func classifyPresent(r Result) outcome {
	switch r {
	case Success:
		return outcomeOK
	case Suboptimal, OutOfDate:
		return outcomeRecreate
	}
	return outcomeFatal
}

// classifyStrict is used for fence waits, resets and submissions, which
// have no recoverable outcome.
func classifyStrict(r Result) outcome {
	if r == Success {
		return outcomeOK
	}
	return outcomeFatal
}
