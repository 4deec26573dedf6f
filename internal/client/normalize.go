package client

import (
	"wisefido-therapy/internal/models"
)

// ACT 云端的原始 DTO（vendor API，字段为 camelCase）。
// 上游对间歇事件的序号字段命名不统一（sequenceNum / sequenceNumber 都出现过），
// 统一在本文件归一化成 models.BreathEvent.Sequence，下游不再处理别名。

type rawUser struct {
	UID           string `json:"uid"`
	Name          string `json:"name"`
	TrialStage    string `json:"trialStage"`
	DeviceMode    string `json:"deviceMode"`
	LastActive    int64  `json:"lastActive"`
	LastTreatment int64  `json:"lastTreatment"`
}

type rawPrescription struct {
	UID                  string  `json:"uid"`
	Username             string  `json:"username"`
	SessionsPerDay       int     `json:"amountOfSets"` // vendor 命名历史遗留：amountOfSets 实为每日场次数
	SetsPerSession       int     `json:"setsPerACTSession"`
	ExhalesPerSet        int     `json:"exhalesPerSet"`
	ExhaleDuration       float64 `json:"exhaleDuration"`
	ExhaleTargetPressure float64 `json:"exhaleTargetPressure"`
	ExhaleTargetRange    float64 `json:"exhaleTargetRange"`
}

type rawDay struct {
	Date          string       `json:"date"`
	TotalSessions int          `json:"totalSessions"`
	TotalSets     int          `json:"totalSets"`
	TotalExhales  int          `json:"totalExhales"`
	Sessions      []rawSession `json:"treatmentSessions"`
}

type rawSession struct {
	UID            string   `json:"uid"`
	PrescriptionID string   `json:"prescriptionId"`
	StartTime      int64    `json:"startTime"`
	EndTime        int64    `json:"endTime"`
	Duration       int64    `json:"duration"`
	Sets           []rawSet `json:"treatmentSets"`
}

type rawSet struct {
	UID          string      `json:"uid"`
	SessionID    string      `json:"sessionId"`
	StartTime    int64       `json:"startTime"`
	EndTime      int64       `json:"endTime"`
	Duration     int64       `json:"duration"`
	TotalExhales int         `json:"totalExhales"`
	Exhales      []rawBreath `json:"exhales"`
	Gaps         []rawBreath `json:"exhaleGaps"`
}

type rawBreath struct {
	UID            string   `json:"uid"`
	SequenceNumber *int     `json:"sequenceNumber,omitempty"`
	SequenceNum    *int     `json:"sequenceNum,omitempty"`
	StartTime      int64    `json:"startTime"`
	EndTime        int64    `json:"endTime"`
	Duration       int64    `json:"duration"`
	Values         []byte   `json:"values"` // base64 波形缓冲区
	Quality        *float64 `json:"quality,omitempty"`
	Completion     *float64 `json:"completion,omitempty"`
}

// normalizeSequence 序号别名归一化：sequenceNum 优先，sequenceNumber 兜底
// 两个别名指向同一个逻辑字段，优先级全库一致
func normalizeSequence(r rawBreath) int {
	if r.SequenceNum != nil {
		return *r.SequenceNum
	}
	if r.SequenceNumber != nil {
		return *r.SequenceNumber
	}
	return 0
}

func normalizeBreath(userID, sessionID, setID string, kind models.EventKind, r rawBreath) models.BreathEvent {
	return models.BreathEvent{
		EventID:    r.UID,
		Kind:       kind,
		UserID:     userID,
		SessionID:  sessionID,
		SetID:      setID,
		Sequence:   normalizeSequence(r),
		StartTime:  r.StartTime,
		EndTime:    r.EndTime,
		DurationMs: r.Duration,
		Waveform:   r.Values,
		Quality:    r.Quality,
		Completion: r.Completion,
	}
}

func normalizeSet(userID, sessionID string, raw rawSet) models.TreatmentSet {
	if sessionID == "" {
		sessionID = raw.SessionID
	}
	set := models.TreatmentSet{
		SetID:        raw.UID,
		SessionID:    sessionID,
		StartTime:    raw.StartTime,
		EndTime:      raw.EndTime,
		DurationMs:   raw.Duration,
		TotalExhales: raw.TotalExhales,
	}
	events := make([]models.BreathEvent, 0, len(raw.Exhales)+len(raw.Gaps))
	for _, e := range raw.Exhales {
		events = append(events, normalizeBreath(userID, sessionID, raw.UID, models.EventExhale, e))
	}
	for _, g := range raw.Gaps {
		events = append(events, normalizeBreath(userID, sessionID, raw.UID, models.EventGap, g))
	}
	set.Events = events
	return set
}

func normalizeSession(userID string, raw rawSession) models.TreatmentSession {
	session := models.TreatmentSession{
		SessionID:      raw.UID,
		PrescriptionID: raw.PrescriptionID,
		StartTime:      raw.StartTime,
		EndTime:        raw.EndTime,
		DurationMs:     raw.Duration,
	}
	sets := make([]models.TreatmentSet, 0, len(raw.Sets))
	for _, s := range raw.Sets {
		sets = append(sets, normalizeSet(userID, raw.UID, s))
	}
	session.Sets = sets
	return session
}

func normalizeDay(userID, date string, raw rawDay) models.TreatmentDay {
	if raw.Date != "" {
		date = raw.Date
	}
	day := models.TreatmentDay{
		Date:          date,
		TotalSessions: raw.TotalSessions,
		TotalSets:     raw.TotalSets,
		TotalExhales:  raw.TotalExhales,
	}
	sessions := make([]models.TreatmentSession, 0, len(raw.Sessions))
	for _, s := range raw.Sessions {
		sessions = append(sessions, normalizeSession(userID, s))
	}
	day.Sessions = sessions
	return day
}
