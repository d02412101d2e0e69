package countries

import (
	"math/rand"
	"sync"
	"testing"
	"time"
)

func TestCatalogSize(t *testing.T) {
	if len(Catalog) != 20 {
		t.Fatalf("catalog has %d entries, want 20", len(Catalog))
	}
	seen := make(map[string]struct{}, len(Catalog))
	for _, c := range Catalog {
		if c.Code == "" || c.Name == "" {
			t.Fatalf("catalog entry %+v has empty field", c)
		}
		if _, dup := seen[c.Code]; dup {
			t.Fatalf("duplicate country code %s", c.Code)
		}
		seen[c.Code] = struct{}{}
	}
}

func TestPickDrawsFromCatalog(t *testing.T) {
	p := NewPicker(rand.New(rand.NewSource(42)))

	codes := make(map[string]struct{}, len(Catalog))
	for _, c := range Catalog {
		codes[c.Code] = struct{}{}
	}

	hits := make(map[string]int)
	for i := 0; i < 1000; i++ {
		c := p.Pick()
		if _, ok := codes[c.Code]; !ok {
			t.Fatalf("picked %q which is not in the catalog", c.Code)
		}
		hits[c.Code]++
	}

	// Independent draws with replacement: over 1000 draws from 20 entries
	// every entry should show up, and no entry should be exhausted.
	if len(hits) != len(Catalog) {
		t.Fatalf("only %d distinct countries drawn in 1000 picks", len(hits))
	}
}

func TestDelayWithinHalfOpenInterval(t *testing.T) {
	p := NewPicker(rand.New(rand.NewSource(7)))

	min, max := 5*time.Second, 25*time.Second
	for i := 0; i < 1000; i++ {
		d := p.Delay(min, max)
		if d < min || d >= max {
			t.Fatalf("delay %v outside [%v, %v)", d, min, max)
		}
	}
}

func TestDelayDegenerateInterval(t *testing.T) {
	p := NewPicker(rand.New(rand.NewSource(7)))

	if d := p.Delay(time.Second, time.Second); d != time.Second {
		t.Fatalf("delay for empty interval = %v, want min", d)
	}
	if d := p.Delay(2*time.Second, time.Second); d != 2*time.Second {
		t.Fatalf("delay for inverted interval = %v, want min", d)
	}
}

func TestPickerConcurrentUse(t *testing.T) {
	// Both clients share one picker, so Pick and Delay race against each
	// other when rounds overlap. Run under -race.
	p := NewPicker(rand.New(rand.NewSource(42)))

	codes := make(map[string]struct{}, len(Catalog))
	for _, c := range Catalog {
		codes[c.Code] = struct{}{}
	}

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				c := p.Pick()
				if _, ok := codes[c.Code]; !ok {
					t.Errorf("picked %q which is not in the catalog", c.Code)
					return
				}
				if d := p.Delay(5*time.Millisecond, 25*time.Millisecond); d < 5*time.Millisecond || d >= 25*time.Millisecond {
					t.Errorf("delay %v outside [5ms, 25ms)", d)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestPickerDeterministicWithSeed(t *testing.T) {
	a := NewPicker(rand.New(rand.NewSource(99)))
	b := NewPicker(rand.New(rand.NewSource(99)))

	for i := 0; i < 50; i++ {
		if got, want := a.Pick(), b.Pick(); got != want {
			t.Fatalf("draw %d differs: %v vs %v", i, got, want)
		}
	}
}
