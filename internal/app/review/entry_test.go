package review

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{"negative clamps to zero", -time.Second, "0s"},
		{"sub-minute keeps tenths", 2340 * time.Millisecond, "2.3s"},
		{"minutes round to seconds", 3*time.Minute + 2400*time.Millisecond, "3m2s"},
		{"hours", 2*time.Hour + 15*time.Minute, "2h15m0s"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, formatDuration(tt.d))
		})
	}
}

func TestCachedOutputRender(t *testing.T) {
	t.Parallel()

	created := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	out := &cachedOutput{text: "the report", createdAt: created}

	got := out.render(created.Add(90 * time.Second))
	assert.Equal(t, "Last generated 1m30s ago\n\nthe report", got)
}
