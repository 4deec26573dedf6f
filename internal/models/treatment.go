package models

// EventKind 呼吸事件类型（呼气 / 间歇）
type EventKind int

const (
	EventExhale EventKind = iota
	EventGap
)

// BreathEvent 归一化后的呼吸事件
// 上游原始记录（呼气/间歇两种形态、字段命名不一致）在 client 边界统一转换为本结构，
// 之后的排序、拼接、汇总都只依赖这里的字段。
type BreathEvent struct {
	EventID   string    `json:"event_id"`
	Kind      EventKind `json:"kind"`
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	SetID     string    `json:"set_id"`
	// Sequence 归一化后的序号（呼气与间歇共用同一序号空间，组内 1 起始）
	Sequence int `json:"sequence"`
	// ScopeOrdinal 所属 scope 的序（组内排第几个 set / 天内排第几个 session），
	// 由调用方按开始时间升序分配，排序的第一关键字
	ScopeOrdinal int   `json:"scope_ordinal"`
	StartTime    int64 `json:"start_time"` // Unix 毫秒
	EndTime      int64 `json:"end_time"`   // Unix 毫秒
	DurationMs   int64 `json:"duration_ms"`
	// Waveform 原始压力波形（小端 float32 序列），间歇事件可为空
	Waveform []byte `json:"-"`
	// Synthetic 占位事件：没有真实采样、仅为让空 scope 在时间轴上可见
	Synthetic  bool     `json:"synthetic,omitempty"`
	Quality    *float64 `json:"quality,omitempty"`
	Completion *float64 `json:"completion,omitempty"`
}

// PressureSample 解码后的压力采样点
type PressureSample struct {
	TimeSec float64 `json:"time_sec"` // 相对 scope 时间原点的偏移（秒）
	Value   float64 `json:"value"`
}

// BreathSummary 单次呼气的汇总（呼吸列表页用）
type BreathSummary struct {
	EventID           string  `json:"event_id"`
	Index             int     `json:"index"` // 排序后重新编号，1 起始
	StartTime         int64   `json:"start_time"`
	EndTime           int64   `json:"end_time"`
	DurationMs        int64   `json:"duration_ms"`
	AvgPressure       float64 `json:"avg_pressure"`
	PressureTarget    float64 `json:"pressure_target"`
	PressureRange     float64 `json:"pressure_range"`
	DurationTargetSec float64 `json:"duration_target_sec"`
}

// Prescription 处方（治疗目标配置），抓取后不可变
type Prescription struct {
	PrescriptionID    string  `json:"prescription_id"`
	Username          string  `json:"username"`
	SessionsPerDay    int     `json:"sessions_per_day"`
	SetsPerSession    int     `json:"sets_per_session"`
	BreathsPerSet     int     `json:"breaths_per_set"`
	BreathDurationSec float64 `json:"breath_duration_sec"`
	PressureTarget    float64 `json:"pressure_target"`
	PressureRange     float64 `json:"pressure_range"`
	// 适用日期窗口（含边界，"2006-01-02"），同一用户可有多张处方各管一段日期
	AppliedFrom string `json:"applied_from,omitempty"`
	AppliedTo   string `json:"applied_to,omitempty"`
}

// TreatmentSet 治疗组：一组连续完成的呼吸事件
type TreatmentSet struct {
	SetID        string        `json:"set_id"`
	SessionID    string        `json:"session_id"`
	StartTime    int64         `json:"start_time"`
	EndTime      int64         `json:"end_time"`
	DurationMs   int64         `json:"duration_ms"`
	TotalExhales int           `json:"total_exhales"`
	Events       []BreathEvent `json:"events"`
}

// TreatmentSession 治疗场次：一次坐下完成的若干组
// 场次序号是读取时按开始时间升序得出的位置，不落库
type TreatmentSession struct {
	SessionID      string         `json:"session_id"`
	PrescriptionID string         `json:"prescription_id"`
	StartTime      int64          `json:"start_time"`
	EndTime        int64          `json:"end_time"`
	DurationMs     int64          `json:"duration_ms"`
	Sets           []TreatmentSet `json:"sets"`
}

// TreatmentDay 治疗日：按日期聚合的派生视图，每次抓取重新计算
type TreatmentDay struct {
	Date          string             `json:"date"` // "2006-01-02"
	TotalSessions int                `json:"total_sessions"`
	TotalSets     int                `json:"total_sets"`
	TotalExhales  int                `json:"total_exhales"`
	Sessions      []TreatmentSession `json:"sessions"`
}

// ComplianceSnapshot 某粒度下的实际完成量
type ComplianceSnapshot struct {
	Sessions int `json:"sessions"`
	Sets     int `json:"sets"`
	Breaths  int `json:"breaths"`
}

// DayRecord 区间查询中的单日记录（抓取失败时各计数为 0）
type DayRecord struct {
	Date        string `json:"date"`
	ActSessions int    `json:"act_sessions"`
	Sets        int    `json:"sets"`
	Breaths     int    `json:"breaths"`
}

// Participant 参与者概要信息
type Participant struct {
	Username   string `json:"username"`
	TrialStage string `json:"trial_stage"`
	DeviceMode string `json:"device_mode"`
	LastSeen   int64  `json:"last_seen"` // Unix 毫秒
	LastACT    int64  `json:"last_act"`  // Unix 毫秒
}
