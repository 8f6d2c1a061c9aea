package transformer

import (
	"errors"
	"fmt"
	"testing"
)

func TestSeenSetMark(t *testing.T) {
	t.Parallel()

	s := NewSeenSet(0)

	dup, err := s.Mark("1367531")
	if err != nil || dup {
		t.Fatalf("first Mark = (%v, %v), want (false, nil)", dup, err)
	}
	dup, err = s.Mark("1367531")
	if err != nil || !dup {
		t.Fatalf("second Mark = (%v, %v), want (true, nil)", dup, err)
	}
	if dup, _ := s.Mark("20"); dup {
		t.Error("distinct id reported as duplicate")
	}
	if got := s.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
}

func TestSeenSetMonotonic(t *testing.T) {
	t.Parallel()

	s := NewSeenSet(0)
	s.Mark("a")
	for i := 0; i < 100; i++ {
		s.Mark(fmt.Sprintf("x%d", i))
	}
	if dup, _ := s.Mark("a"); !dup {
		t.Error("previously marked id forgotten")
	}
}

func TestSeenSetLimit(t *testing.T) {
	t.Parallel()

	s := NewSeenSet(2)
	s.Mark("a")
	s.Mark("b")

	// Already-marked ids stay answerable at the limit.
	if dup, err := s.Mark("a"); err != nil || !dup {
		t.Fatalf("Mark(existing) at limit = (%v, %v)", dup, err)
	}

	if _, err := s.Mark("c"); !errors.Is(err, ErrSeenLimit) {
		t.Fatalf("Mark beyond limit err = %v, want ErrSeenLimit", err)
	}
	if got := s.Len(); got != 2 {
		t.Errorf("Len() after limit hit = %d, want 2", got)
	}
}
