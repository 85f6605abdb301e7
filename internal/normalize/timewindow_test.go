package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDayWindow(t *testing.T) {
	ts := time.Date(2025, 8, 29, 22, 10, 0, 0, time.UTC)
	assert.Equal(t, "2025-08-29", DayWindow(ts))

	t.Run("统一按UTC计算", func(t *testing.T) {
		loc := time.FixedZone("UTC-6", -6*3600)
		local := time.Date(2025, 8, 29, 20, 0, 0, 0, loc) // 2025-08-30 02:00 UTC
		assert.Equal(t, "2025-08-30", DayWindow(local))
	})
}

func TestHourWindow(t *testing.T) {
	ts := time.Date(2025, 8, 29, 5, 59, 59, 0, time.UTC)
	assert.Equal(t, "2025-08-29-05", HourWindow(ts))
}

func TestAdjacentHourWindows(t *testing.T) {
	t.Run("包含前后各一个小时窗口", func(t *testing.T) {
		ts := time.Date(2025, 8, 29, 10, 30, 0, 0, time.UTC)
		windows := AdjacentHourWindows(ts)
		assert.Equal(t, []string{"2025-08-29-09", "2025-08-29-10", "2025-08-29-11"}, windows)
	})

	t.Run("跨天边界", func(t *testing.T) {
		ts := time.Date(2025, 8, 29, 0, 5, 0, 0, time.UTC)
		windows := AdjacentHourWindows(ts)
		assert.Contains(t, windows, "2025-08-28-23")
		assert.Contains(t, windows, "2025-08-29-00")
		assert.Contains(t, windows, "2025-08-29-01")
	})

	t.Run("边界邮件与近同时副本共享窗口", func(t *testing.T) {
		a := time.Date(2025, 8, 29, 9, 59, 50, 0, time.UTC)
		b := time.Date(2025, 8, 29, 10, 0, 5, 0, time.UTC)
		wa := AdjacentHourWindows(a)
		assert.Contains(t, wa, HourWindow(b))
	})
}
