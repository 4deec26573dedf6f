package timeline

import (
	"sort"

	"wisefido-therapy/internal/models"
)

// Sequence 对混合的呼气/间歇事件做稳定全排序
// 排序键：scope 序 → 归一化序号 → 开始时间；全部相等时保持原相对顺序。
// 时间轴拼接和呼吸列表都以这个顺序为准。
func Sequence(events []models.BreathEvent) []models.BreathEvent {
	out := make([]models.BreathEvent, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ScopeOrdinal != b.ScopeOrdinal {
			return a.ScopeOrdinal < b.ScopeOrdinal
		}
		if a.Sequence != b.Sequence {
			return a.Sequence < b.Sequence
		}
		return a.StartTime < b.StartTime
	})
	return out
}

// Exhales 排序后仅保留呼气事件（间歇剔除），供呼吸列表重新编号使用
func Exhales(events []models.BreathEvent) []models.BreathEvent {
	seq := Sequence(events)
	out := make([]models.BreathEvent, 0, len(seq))
	for _, ev := range seq {
		if ev.Kind == models.EventExhale {
			out = append(out, ev)
		}
	}
	return out
}
