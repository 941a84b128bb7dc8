package backoff

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSchedule(t *testing.T) {
	b := Default()
	want := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}
	for i, w := range want {
		assert.Equal(t, w, b.Next(i+1), "attempt %d", i+1)
	}
}

func TestNext(t *testing.T) {
	tests := []struct {
		name    string
		b       Backoff
		attempt int
		want    time.Duration
	}{
		{"zero value", Backoff{}, 3, 4 * time.Second},
		{"attempt clamps", Default(), 0, time.Second},
		{"custom unit", Backoff{Unit: 100 * time.Millisecond, Base: 3}, 3, 900 * time.Millisecond},
		{"flat", Backoff{Unit: time.Second, Base: 1}, 5, time.Second},
		{"capped", Backoff{Unit: time.Second, Base: 2, Max: 5 * time.Second}, 4, 5 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.b.Next(tt.attempt))
		})
	}
}

func TestSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSleepElapses(t *testing.T) {
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))
	assert.NoError(t, Sleep(context.Background(), 0))
}
