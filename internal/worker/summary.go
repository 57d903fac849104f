package worker

// Summary counts what a worker did during Run.
type Summary struct {
	Claimed  int
	Done     int
	Failed   int
	Requeued int
	// Unmatched counts reports that found no in_progress row to update.
	Unmatched int
	// Drained is true when the run ended because no pending rows remained.
	Drained bool
}

// Add folds another summary into s. The result is drained only when both are.
func (s Summary) Add(other Summary) Summary {
	return Summary{
		Claimed:   s.Claimed + other.Claimed,
		Done:      s.Done + other.Done,
		Failed:    s.Failed + other.Failed,
		Requeued:  s.Requeued + other.Requeued,
		Unmatched: s.Unmatched + other.Unmatched,
		Drained:   s.Drained && other.Drained,
	}
}
