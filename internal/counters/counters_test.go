package counters

import (
	"sync"
	"testing"
)

func TestCounterAddAndSum(t *testing.T) {
	var c Counter
	c.Add(5)
	c.Inc()
	if got := c.Sum(); got != 6 {
		t.Fatalf("expected sum 6, got %d", got)
	}
}

func TestCounterSumThenResetClearsValue(t *testing.T) {
	var c Counter
	c.Add(10)
	if got := c.SumThenReset(); got != 10 {
		t.Fatalf("expected 10 from SumThenReset, got %d", got)
	}
	if got := c.Sum(); got != 0 {
		t.Fatalf("expected counter cleared after SumThenReset, got %d", got)
	}
}

func TestCounterConcurrentAdd(t *testing.T) {
	var c Counter
	var wg sync.WaitGroup
	const goroutines = 50
	const perGoroutine = 1000
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				c.Inc()
			}
		}()
	}
	wg.Wait()
	if got := c.Sum(); got != goroutines*perGoroutine {
		t.Fatalf("expected %d, got %d", goroutines*perGoroutine, got)
	}
}

func TestSetResetSessionLeavesTotalsIntact(t *testing.T) {
	var s Set
	s.MessagesSent.Add(3)
	s.BytesSent.Add(300)
	s.TotalMessagesSent.Add(3)

	s.ResetSession()

	if got := s.MessagesSent.Sum(); got != 0 {
		t.Fatalf("expected session counter reset, got %d", got)
	}
	if got := s.BytesSent.Sum(); got != 0 {
		t.Fatalf("expected session counter reset, got %d", got)
	}
	if got := s.TotalMessagesSent.Sum(); got != 3 {
		t.Fatalf("expected total counter untouched by ResetSession, got %d", got)
	}
}

func TestSetResetTotalsLeavesSessionIntact(t *testing.T) {
	var s Set
	s.MessagesSent.Add(7)
	s.TotalMessagesSent.Add(7)

	s.ResetTotals()

	if got := s.TotalMessagesSent.Sum(); got != 0 {
		t.Fatalf("expected total counter reset, got %d", got)
	}
	if got := s.MessagesSent.Sum(); got != 7 {
		t.Fatalf("expected session counter untouched by ResetTotals, got %d", got)
	}
}
