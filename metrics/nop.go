package metrics

type nopCounter struct{}

func (nopCounter) Inc()        {}
func (nopCounter) Add(float64) {}

type nopTimer struct{}

func (nopTimer) ObserveDuration() {}

// NopCounter returns a no-op Counter.
func NopCounter() Counter { return nopCounter{} }

// NopTimer returns a no-op Timer.
func NopTimer() Timer { return nopTimer{} }

