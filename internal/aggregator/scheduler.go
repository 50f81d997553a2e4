package aggregator

// Scheduler distributes test files across parse workers
type Scheduler interface {
	Schedule(files []string, workerCount int) [][]string
}

// RoundRobinScheduler distributes files evenly across workers
type RoundRobinScheduler struct{}

// NewRoundRobinScheduler creates a new RoundRobinScheduler
func NewRoundRobinScheduler() *RoundRobinScheduler {
	return &RoundRobinScheduler{}
}

// Schedule deals files out to workers round-robin.
// No more batches than files are returned, so idle workers are never started.
func (s *RoundRobinScheduler) Schedule(files []string, workerCount int) [][]string {
	if workerCount <= 0 {
		workerCount = 1
	}
	if workerCount > len(files) {
		workerCount = len(files)
	}

	distribution := make([][]string, workerCount)
	for i, file := range files {
		workerIndex := i % workerCount
		distribution[workerIndex] = append(distribution[workerIndex], file)
	}

	return distribution
}
