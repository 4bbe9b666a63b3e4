package backoff_test

import (
	"math"
	"testing"
	"time"

	"github.com/xraph/jobwatch/backoff"
)

func TestStrategies_ZeroFailuresMeansNoDelay(t *testing.T) {
	strategies := map[string]backoff.Strategy{
		"constant":    backoff.NewConstant(time.Second),
		"linear":      backoff.NewLinear(time.Second, 0),
		"exponential": backoff.NewExponential(time.Second, 0),
		"jitter":      backoff.NewExponentialWithJitter(time.Second, 0),
	}
	for name, s := range strategies {
		if got := s.Delay(0); got != 0 {
			t.Errorf("%s: Delay(0) = %v, want 0", name, got)
		}
	}
}

func TestConstant_ReturnsFixedDelay(t *testing.T) {
	c := backoff.NewConstant(5 * time.Second)
	for n := 1; n <= 10; n++ {
		if got := c.Delay(n); got != 5*time.Second {
			t.Errorf("Delay(%d) = %v, want %v", n, got, 5*time.Second)
		}
	}
}

func TestLinear_GrowsLinearly(t *testing.T) {
	l := backoff.NewLinear(time.Second, time.Minute)

	tests := []struct {
		failures int
		want     time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 3 * time.Second},
		{10, 10 * time.Second},
	}
	for _, tt := range tests {
		if got := l.Delay(tt.failures); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.failures, got, tt.want)
		}
	}
}

func TestLinear_CapsAtMax(t *testing.T) {
	l := backoff.NewLinear(time.Second, 5*time.Second)

	if got := l.Delay(10); got != 5*time.Second {
		t.Errorf("Delay(10) = %v, want %v (capped at Max)", got, 5*time.Second)
	}
}

func TestLinear_ZeroMaxIsUncapped(t *testing.T) {
	l := backoff.NewLinear(time.Second, 0)
	if got := l.Delay(100); got != 100*time.Second {
		t.Errorf("Delay(100) = %v, want %v", got, 100*time.Second)
	}
}

func TestExponential_DoublesEachFailure(t *testing.T) {
	e := backoff.NewExponential(time.Second, time.Hour)

	tests := []struct {
		failures int
		want     time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{5, 16 * time.Second},
	}
	for _, tt := range tests {
		if got := e.Delay(tt.failures); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.failures, got, tt.want)
		}
	}

	capped := backoff.NewExponential(time.Second, 10*time.Second)
	if got := capped.Delay(5); got != 10*time.Second {
		t.Errorf("Delay(5) = %v, want %v (capped at Max)", got, 10*time.Second)
	}
}

func TestExponentialWithJitter_WithinBounds(t *testing.T) {
	e := backoff.NewExponentialWithJitter(time.Second, 10*time.Second)

	for n := 1; n <= 5; n++ {
		for range 100 {
			got := e.Delay(n)
			if got < 0 || got > 10*time.Second {
				t.Errorf("Delay(%d) = %v, want within [0, 10s]", n, got)
			}
		}
	}
}

func TestDefaultStrategy_AddsOneIntervalPerFailure(t *testing.T) {
	interval := 200 * time.Millisecond
	s := backoff.DefaultStrategy(interval, 0)

	for n := 1; n <= 4; n++ {
		want := time.Duration(n) * interval
		if got := s.Delay(n); got != want {
			t.Errorf("Delay(%d) = %v, want %v", n, got, want)
		}
	}
}

func TestStrategies_SaturateOnLongOutages(t *testing.T) {
	tests := []struct {
		name string
		s    backoff.Strategy
		max  time.Duration
	}{
		{"linear capped", backoff.NewLinear(time.Second, time.Minute), time.Minute},
		{"exponential capped", backoff.NewExponential(time.Second, time.Minute), time.Minute},
		{"jitter capped", backoff.NewExponentialWithJitter(time.Second, time.Minute), time.Minute},
		{"exponential uncapped", backoff.NewExponential(time.Second, 0), math.MaxInt64},
		{"linear uncapped", backoff.NewLinear(time.Hour, 0), math.MaxInt64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := time.Duration(0)
			for _, n := range []int{35, 64, 100, 1 << 20, math.MaxInt32} {
				got := tt.s.Delay(n)
				if got < 0 || got > tt.max {
					t.Fatalf("Delay(%d) = %v, want within [0, %v]", n, got, tt.max)
				}
				if _, jitter := tt.s.(*backoff.ExponentialWithJitter); !jitter && got < prev {
					t.Fatalf("Delay(%d) = %v, shrank from %v", n, got, prev)
				}
				prev = got
			}
		})
	}

	if got := backoff.NewExponential(time.Second, time.Minute).Delay(35); got != time.Minute {
		t.Errorf("Exponential(1s, 1m).Delay(35) = %v, want 1m", got)
	}
}

func TestConstant_NegativeIntervalIsZero(t *testing.T) {
	if got := backoff.NewConstant(-time.Second).Delay(3); got != 0 {
		t.Errorf("Delay(3) = %v, want 0", got)
	}
}
