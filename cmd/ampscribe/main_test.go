package main

import (
	"errors"
	"fmt"
	"testing"
)

type codedError int

func (c codedError) Error() string { return fmt.Sprintf("code %d", int(c)) }
func (c codedError) ExitCode() int { return int(c) }

func TestExitStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{errors.New("plain"), 1},
		{codedError(2), 2},
		{fmt.Errorf("wrapped: %w", codedError(2)), 2},
		{codedError(0), 1},
	}
	for _, tc := range cases {
		if got := exitStatus(tc.err); got != tc.want {
			t.Fatalf("exitStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
