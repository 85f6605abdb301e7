package normalize

import "time"

// 时间窗口刻意做得很粗：召回优先于精度。漏判会静默产生重复会话记录，
// 而误判会被更高优先级的精确匹配层兜住。所有窗口统一按 UTC 计算。

// DayWindow 把时间戳归入天级窗口，格式 YYYY-MM-DD。
func DayWindow(ts time.Time) string {
	return ts.UTC().Format("2006-01-02")
}

// HourWindow 把时间戳归入小时级窗口，格式 YYYY-MM-DD-HH。
func HourWindow(ts time.Time) string {
	return ts.UTC().Format("2006-01-02-15")
}

// AdjacentHourWindows 返回时间戳所在的小时窗口及其前后各一个窗口（去重）。
// 小时边界附近的邮件因此仍能匹配到几乎同时的另一份副本。
func AdjacentHourWindows(ts time.Time) []string {
	seen := make(map[string]struct{}, 3)
	windows := make([]string, 0, 3)
	for _, offset := range []time.Duration{-time.Hour, 0, time.Hour} {
		w := HourWindow(ts.Add(offset))
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		windows = append(windows, w)
	}
	return windows
}
