package fileid

import (
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestNewFormat(t *testing.T) {
	id := New()

	if len(id) < 13+suffixLength {
		t.Errorf("Expected id of at least %d chars, got %q (%d)", 13+suffixLength, id, len(id))
	}

	tsPart := id[:len(id)-suffixLength]
	ts, err := strconv.ParseInt(tsPart, 10, 64)
	if err != nil {
		t.Fatalf("Expected numeric timestamp prefix, got %q: %v", tsPart, err)
	}

	now := time.Now().UnixMilli()
	if ts > now || ts < now-60_000 {
		t.Errorf("Timestamp prefix %d not close to now (%d)", ts, now)
	}

	suffix := id[len(id)-suffixLength:]
	for _, c := range suffix {
		if !strings.ContainsRune(base36Chars, c) {
			t.Errorf("Suffix contains non-base36 character %q in %q", c, suffix)
		}
	}
}

func TestNewUniqueAcrossConcurrentCalls(t *testing.T) {
	const goroutines = 20
	const perGoroutine = 50

	var mu sync.Mutex
	seen := make(map[string]bool, goroutines*perGoroutine)
	var wg sync.WaitGroup

	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids := make([]string, 0, perGoroutine)
			for i := 0; i < perGoroutine; i++ {
				ids = append(ids, New())
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range ids {
				if seen[id] {
					t.Errorf("Duplicate identifier generated: %s", id)
				}
				seen[id] = true
			}
		}()
	}
	wg.Wait()

	if len(seen) != goroutines*perGoroutine {
		t.Errorf("Expected %d unique ids, got %d", goroutines*perGoroutine, len(seen))
	}
}
