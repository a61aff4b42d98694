package recorder

import (
	"sync"
	"testing"
)

func TestSnapshotAndResetTilesWithoutOverlap(t *testing.T) {
	r := New(60_000_000, 5)
	r.RecordValue(100)
	r.RecordValue(200)

	first := r.SnapshotAndReset()
	if first.TotalCount() != 2 {
		t.Fatalf("expected 2 samples in first snapshot, got %d", first.TotalCount())
	}

	r.RecordValue(300)
	second := r.SnapshotAndReset()
	if second.TotalCount() != 1 {
		t.Fatalf("expected 1 sample in second snapshot, got %d", second.TotalCount())
	}
	if first.TotalCount()+second.TotalCount() != 3 {
		t.Fatalf("expected snapshots to tile to 3 total samples")
	}
}

func TestSnapshotDoesNotClearCumulative(t *testing.T) {
	r := New(60_000_000, 5)
	r.RecordValue(100)
	r.RecordValue(200)

	snap := r.Snapshot()
	if snap.TotalCount() != 2 {
		t.Fatalf("expected snapshot to contain 2 samples, got %d", snap.TotalCount())
	}

	r.RecordValue(300)
	again := r.Snapshot()
	if again.TotalCount() != 3 {
		t.Fatalf("expected cumulative snapshot to keep growing, got %d", again.TotalCount())
	}
}

func TestRecordValueClampsOutOfRange(t *testing.T) {
	r := New(1000, 3)
	r.RecordValue(-5)
	r.RecordValue(1_000_000)

	snap := r.Snapshot()
	if snap.TotalCount() != 2 {
		t.Fatalf("expected both out-of-range values to still be recorded, got %d", snap.TotalCount())
	}
	if max := snap.Max(); max > 1000 {
		t.Fatalf("expected max value clamped to 1000, got %d", max)
	}
}

func TestResetClearsLiveHistogram(t *testing.T) {
	r := New(60_000_000, 5)
	r.RecordValue(42)
	r.Reset()
	snap := r.Snapshot()
	if snap.TotalCount() != 0 {
		t.Fatalf("expected empty histogram after reset, got %d samples", snap.TotalCount())
	}
}

func TestConcurrentRecordAndSnapshot(t *testing.T) {
	r := New(60_000_000, 5)
	var wg sync.WaitGroup
	const writers = 20
	const perWriter = 500
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				r.RecordValue(int64(j + 1))
			}
		}()
	}

	total := int64(0)
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
loop:
	for {
		select {
		case <-done:
			break loop
		default:
			total += r.SnapshotAndReset().TotalCount()
		}
	}
	total += r.SnapshotAndReset().TotalCount()

	if total != writers*perWriter {
		t.Fatalf("expected %d total recorded samples across snapshots, got %d", writers*perWriter, total)
	}
}

func TestPairRecordsBothRecorders(t *testing.T) {
	s := NewSet()
	s.Publish.RecordValue(10)

	interval := s.Publish.Interval.SnapshotAndReset()
	if interval.TotalCount() != 1 {
		t.Fatalf("expected interval recorder to see the value")
	}
	cumulative := s.Publish.Cumulative.Snapshot()
	if cumulative.TotalCount() != 1 {
		t.Fatalf("expected cumulative recorder to see the value")
	}

	// Interval recorder was cleared by the snapshot above; cumulative was not.
	s.Publish.RecordValue(20)
	intervalAfter := s.Publish.Interval.Snapshot()
	if intervalAfter.TotalCount() != 1 {
		t.Fatalf("expected interval recorder reset by prior snapshot, got %d", intervalAfter.TotalCount())
	}
	cumulativeAfter := s.Publish.Cumulative.Snapshot()
	if cumulativeAfter.TotalCount() != 2 {
		t.Fatalf("expected cumulative recorder to keep accumulating, got %d", cumulativeAfter.TotalCount())
	}
}
