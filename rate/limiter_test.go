package rate

import (
	"testing"
	"time"
)

func TestLimiter(t *testing.T) {
	interval := 10 * time.Millisecond
	r := NewLimiter(1, 100, Every(interval))

	tooshort := 1 * time.Millisecond

	client := "learner@academy.test"

	// One token, refilled every interval: back-to-back checks fail until
	// the bucket has had time to refill.
	expected := []bool{true, false, true, true, false, false}
	waits := []time.Duration{tooshort, interval, interval, tooshort, tooshort, tooshort}
	for i, exp := range expected {
		if got := r.Check(client); got != exp {
			t.Fatalf("iteration %d: expected %v, but got %v", i, exp, got)
		}
		time.Sleep(waits[i])
	}
}

func TestLimiterWithBurst(t *testing.T) {
	client := "learner@academy.test"
	burst := 10

	interval := 100 * time.Millisecond
	tooshort := 10 * time.Millisecond
	shortest := 1 * time.Millisecond

	// The whole burst passes at once, then the bucket drains and refills
	// one token per interval.
	expected := []bool{true, true, true, true, true, true, true, true, true, true}
	waits := []time.Duration{0, 0, 0, 0, 0, 0, 0, 0, 0, 0}

	expected = append(expected, false, true, true, false, false, false)
	waits = append(waits, interval, interval, tooshort, tooshort, shortest, shortest)

	r := NewLimiter(burst, 100, Every(interval))
	for i, exp := range expected {
		if got := r.Check(client); got != exp {
			t.Fatalf("iteration %d: expected %v, but got %v", i, exp, got)
		}
		time.Sleep(waits[i])
	}
}
