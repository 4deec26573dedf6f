package compliance

import (
	"wisefido-therapy/internal/models"
)

// Rollup 由处方推算单日目标量
// 纯乘法、不做取整：组目标 = 日场次 × 每场组数，呼吸目标 = 组目标 × 每组呼吸数
func Rollup(p models.Prescription) models.ComplianceSnapshot {
	sets := p.SessionsPerDay * p.SetsPerSession
	return models.ComplianceSnapshot{
		Sessions: p.SessionsPerDay,
		Sets:     sets,
		Breaths:  sets * p.BreathsPerSet,
	}
}

// Delta 两个同形快照的逐字段带符号差（周环比、区间对比用）
// 任一操作数缺失时以全零快照代入，不向上抛错
func Delta(current, previous *models.ComplianceSnapshot) models.ComplianceSnapshot {
	var cur, prev models.ComplianceSnapshot
	if current != nil {
		cur = *current
	}
	if previous != nil {
		prev = *previous
	}
	return models.ComplianceSnapshot{
		Sessions: cur.Sessions - prev.Sessions,
		Sets:     cur.Sets - prev.Sets,
		Breaths:  cur.Breaths - prev.Breaths,
	}
}

// PrescriptionForDay 从处方集合中挑出适用窗口覆盖该日期的处方
// 日期与窗口均为 "2006-01-02"（含边界）；无命中时退回集合中的第一张
func PrescriptionForDay(prescriptions []models.Prescription, date string) (models.Prescription, bool) {
	for _, p := range prescriptions {
		if p.AppliedFrom != "" && p.AppliedTo != "" &&
			p.AppliedFrom <= date && date <= p.AppliedTo {
			return p, true
		}
	}
	if len(prescriptions) > 0 {
		return prescriptions[0], true
	}
	return models.Prescription{}, false
}

// RangeRollup 区间目标：逐日选处方（处方可能在区间中途更换）并累加单日目标
func RangeRollup(prescriptions []models.Prescription, dates []string) models.ComplianceSnapshot {
	var total models.ComplianceSnapshot
	for _, date := range dates {
		p, ok := PrescriptionForDay(prescriptions, date)
		if !ok {
			continue
		}
		daily := Rollup(p)
		total.Sessions += daily.Sessions
		total.Sets += daily.Sets
		total.Breaths += daily.Breaths
	}
	return total
}
