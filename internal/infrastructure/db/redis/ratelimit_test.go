package redis

import (
	"testing"
)

func TestDecide(t *testing.T) {
	cases := []struct {
		name      string
		count     int64
		ttl       int64
		allowed   bool
		remaining int
		retry     int64
	}{
		{"first hit", 1, 900000, true, 9, 0},
		{"last allowed", 10, 1200, true, 0, 0},
		{"over limit", 11, 1200, false, 0, 2},
		{"over limit rounding", 25, 1, false, 0, 1},
		{"expiring window", 11, 0, false, 0, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := decide(10, tc.count, tc.ttl)
			if d.Allowed != tc.allowed || d.Remaining != tc.remaining || d.RetryAfter != tc.retry || d.Limit != 10 {
				t.Fatalf("unexpected decision: %+v", d)
			}
		})
	}
}
