package core

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestParallelFor_CoversRange(t *testing.T) {
	tests := []struct {
		name     string
		n        int
		minChunk int
	}{
		{"empty", 0, 4},
		{"serial", 10, 64},
		{"parallel", 1000, 8},
		{"uneven", 1001, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := make([]int32, tt.n)
			ParallelFor(tt.n, tt.minChunk, func(start, end int) {
				for i := start; i < end; i++ {
					atomic.AddInt32(&hits[i], 1)
				}
			})
			for i, h := range hits {
				if h != 1 {
					t.Fatalf("index %d visited %d times", i, h)
				}
			}
		})
	}
}

func TestPushError(t *testing.T) {
	cause := errors.New("boom")
	err := Push("create-cell", cause)

	if !errors.Is(err, cause) {
		t.Error("PushError does not unwrap to its cause")
	}
	if err.Error() != "engine create-cell: boom" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if Push("noop", nil) != nil {
		t.Error("Push(nil) should be nil")
	}
}
