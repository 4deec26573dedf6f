package timeline

import (
	"sort"

	"wisefido-therapy/internal/models"
	"wisefido-therapy/internal/waveform"
)

// Scope 时间轴的拼接范围
type Scope string

const (
	ScopeSet     Scope = "set"
	ScopeSession Scope = "session"
	ScopeDay     Scope = "day"
)

// 占位采样：没有真实波形的 scope 在时间轴上仍要占一段可见区间
const (
	placeholderCount   = 3
	placeholderSpanSec = 0.3
	placeholderValue   = 0.1
)

// Compose 把已分配 scope 序的事件拼成一条连续时间轴
// 时间原点取全部输入事件的最小开始时间（而不是每个子 scope 各自归零），
// 这样同一天内的多个场次才能保持正确的相对偏移。
// 返回值第二项是因解码为空而被跳过的事件数（仅用于诊断，不算错误）。
func Compose(events []models.BreathEvent) ([]models.PressureSample, int) {
	if len(events) == 0 {
		return nil, 0
	}
	seq := Sequence(events)

	origin := seq[0].StartTime
	for _, ev := range seq {
		if ev.StartTime < origin {
			origin = ev.StartTime
		}
	}

	samples := make([]models.PressureSample, 0, len(seq)*8)
	skipped := 0
	for _, ev := range seq {
		offset := float64(ev.StartTime-origin) / 1000.0

		if ev.Synthetic || waveform.IsPlaceholder(ev.Waveform) {
			step := placeholderSpanSec / float64(placeholderCount-1)
			for k := 0; k < placeholderCount; k++ {
				samples = append(samples, models.PressureSample{
					TimeSec: offset + float64(k)*step,
					Value:   placeholderValue,
				})
			}
			continue
		}

		vals := waveform.Decode(ev.Waveform)
		if len(vals) == 0 {
			skipped++
			continue
		}

		// 每次呼吸的采样数不固定，把采样均匀铺满事件的实际时长：
		// 首个采样落在事件偏移处，末个采样不超过 偏移+时长
		durSec := float64(ev.DurationMs) / 1000.0
		step := 0.0
		if len(vals) > 1 {
			step = durSec / float64(len(vals)-1)
		}
		for k, v := range vals {
			samples = append(samples, models.PressureSample{
				TimeSec: offset + float64(k)*step,
				Value:   v,
			})
		}
	}

	// 兜底：拼接后按偏移稳定排序，消除残余的顺序误差
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].TimeSec < samples[j].TimeSec
	})
	return samples, skipped
}

// FlattenSet 取出一个治疗组的事件（单 scope，序号 0）
// 空组注入一个合成占位事件，保证该组在时间轴上可见
func FlattenSet(set models.TreatmentSet) []models.BreathEvent {
	if len(set.Events) == 0 {
		return []models.BreathEvent{syntheticEvent(set.SetID, set.SessionID, set.StartTime)}
	}
	out := make([]models.BreathEvent, len(set.Events))
	copy(out, set.Events)
	for i := range out {
		out[i].ScopeOrdinal = 0
	}
	return out
}

// FlattenSession 按开始时间升序给组分配 scope 序，再平铺事件
func FlattenSession(session models.TreatmentSession) []models.BreathEvent {
	sets := make([]models.TreatmentSet, len(session.Sets))
	copy(sets, session.Sets)
	sort.SliceStable(sets, func(i, j int) bool {
		return sets[i].StartTime < sets[j].StartTime
	})

	var out []models.BreathEvent
	for ordinal, set := range sets {
		events := FlattenSet(set)
		for i := range events {
			events[i].ScopeOrdinal = ordinal
		}
		out = append(out, events...)
	}
	return out
}

// FlattenDay 场次按开始时间升序排列，组在天内获得全局递增的 scope 序
func FlattenDay(day models.TreatmentDay) []models.BreathEvent {
	sessions := make([]models.TreatmentSession, len(day.Sessions))
	copy(sessions, day.Sessions)
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].StartTime < sessions[j].StartTime
	})

	var out []models.BreathEvent
	ordinal := 0
	for _, session := range sessions {
		sets := make([]models.TreatmentSet, len(session.Sets))
		copy(sets, session.Sets)
		sort.SliceStable(sets, func(i, j int) bool {
			return sets[i].StartTime < sets[j].StartTime
		})
		if len(sets) == 0 {
			// 空场次同样要在天级时间轴上留痕
			out = append(out, models.BreathEvent{
				EventID:      "synthetic-" + session.SessionID,
				SessionID:    session.SessionID,
				StartTime:    session.StartTime,
				EndTime:      session.StartTime + 300,
				DurationMs:   300,
				ScopeOrdinal: ordinal,
				Synthetic:    true,
			})
			ordinal++
			continue
		}
		for _, set := range sets {
			events := FlattenSet(set)
			for i := range events {
				events[i].ScopeOrdinal = ordinal
			}
			out = append(out, events...)
			ordinal++
		}
	}
	return out
}

func syntheticEvent(setID, sessionID string, startTime int64) models.BreathEvent {
	return models.BreathEvent{
		EventID:    "synthetic-" + setID,
		SetID:      setID,
		SessionID:  sessionID,
		StartTime:  startTime,
		EndTime:    startTime + 300,
		DurationMs: 300,
		Synthetic:  true,
	}
}
