package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"wisefido-therapy/internal/client"
	"wisefido-therapy/internal/compliance"
	"wisefido-therapy/internal/models"
	"wisefido-therapy/internal/store"
	"wisefido-therapy/internal/timeline"
	"wisefido-therapy/internal/waveform"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Fetcher ACT 云端抓取接口（client.ACTClient 实现，测试用假实现）
type Fetcher interface {
	FetchUser(ctx context.Context, userID string) (*models.Participant, error)
	FetchDay(ctx context.Context, userID, date string) (*models.TreatmentDay, error)
	FetchSession(ctx context.Context, sessionID string) (*models.TreatmentSession, error)
	FetchSet(ctx context.Context, setID string) (*models.TreatmentSet, error)
	FetchPrescription(ctx context.Context, prescriptionID string) (*models.Prescription, error)
}

// TreatmentService 抓取编排：解析日/场次/组层级、驱动解码拼接与依从性汇总
// 唯一做 I/O 的组件；处方备忘表和诊断累积器都是显式的请求内对象，没有进程级可变状态
type TreatmentService struct {
	fetcher     Fetcher
	kv          store.KV
	logger      *zap.Logger
	concurrency int
	diagTTL     time.Duration
}

// NewTreatmentService 创建治疗数据服务
func NewTreatmentService(fetcher Fetcher, kv store.KV, logger *zap.Logger, concurrency int, diagTTL time.Duration) *TreatmentService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &TreatmentService{
		fetcher:     fetcher,
		kv:          kv,
		logger:      logger,
		concurrency: concurrency,
		diagTTL:     diagTTL,
	}
}

// maxRangeDays 单次区间查询的天数上限（防止误传大区间打爆上游）
const maxRangeDays = 366

// DatesBetween 闭区间展开为逐日日期列表（"2006-01-02"）
func DatesBetween(from, to string) ([]string, error) {
	start, err := time.Parse("2006-01-02", from)
	if err != nil {
		return nil, fmt.Errorf("invalid from date %q: %w", from, err)
	}
	end, err := time.Parse("2006-01-02", to)
	if err != nil {
		return nil, fmt.Errorf("invalid to date %q: %w", to, err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("date range reversed: %s > %s", from, to)
	}
	var dates []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format("2006-01-02"))
		if len(dates) > maxRangeDays {
			return nil, fmt.Errorf("date range exceeds %d days", maxRangeDays)
		}
	}
	return dates, nil
}

// RangeResult 区间抓取结果
type RangeResult struct {
	Days          []models.DayRecord    `json:"days"`
	Prescriptions []models.Prescription `json:"prescriptions"`
}

// FetchRange 区间抓取：每个日期一个独立工作单元，带并发上限的扇出
// 单日失败记全零记录并继续；重新认证信号取消其余单元并原样上抛，
// 已完成的日结果仍保留在返回值里
func (s *TreatmentService) FetchRange(ctx context.Context, diag *diagnostics, userID, username string, dates []string) (*RangeResult, error) {
	res := &RangeResult{Days: make([]models.DayRecord, len(dates))}
	memo := newPrescriptionMemo()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, date := range dates {
		i, date := i, date
		g.Go(func() error {
			day, err := s.fetcher.FetchDay(gctx, userID, date)
			if err != nil {
				if errors.Is(err, client.ErrReauthRequired) {
					return err
				}
				s.logger.Warn("day fetch failed, substituting zero record",
					zap.String("user_id", userID),
					zap.String("date", date),
					zap.Error(err),
				)
				diag.add("day_fetch_failed", date, err.Error())
				res.Days[i] = ZeroDayRecord(date)
				return nil
			}
			res.Days[i] = models.DayRecord{
				Date:        date,
				ActSessions: day.TotalSessions,
				Sets:        day.TotalSets,
				Breaths:     day.TotalExhales,
			}
			for _, id := range prescriptionIDs(day) {
				if _, perr := memo.lookup(gctx, s.fetcher, id, date); perr != nil {
					if errors.Is(perr, client.ErrReauthRequired) {
						return perr
					}
					diag.add("prescription_fetch_failed", id, perr.Error())
				}
			}
			return nil
		})
	}
	waitErr := g.Wait()
	res.Prescriptions = memo.snapshot(username)
	return res, waitErr
}

// prescriptionIDs 某日出现过的处方 ID（去重，保持出现顺序）
func prescriptionIDs(day *models.TreatmentDay) []string {
	seen := make(map[string]bool, len(day.Sessions))
	var ids []string
	for _, sess := range day.Sessions {
		if sess.PrescriptionID == "" || seen[sess.PrescriptionID] {
			continue
		}
		seen[sess.PrescriptionID] = true
		ids = append(ids, sess.PrescriptionID)
	}
	return ids
}

// Participant 参与者概要，抓取失败时给 "NaN" 兜底
func (s *TreatmentService) Participant(ctx context.Context, requestID, userID string) (models.Participant, error) {
	diag := newDiagnostics(requestID)
	defer s.flushDiagnostics(diag)

	p, err := s.fetcher.FetchUser(ctx, userID)
	if err != nil {
		if errors.Is(err, client.ErrReauthRequired) {
			return models.Participant{}, err
		}
		s.logger.Warn("user fetch failed, substituting fallback participant",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		diag.add("user_fetch_failed", userID, err.Error())
		return FallbackParticipant(), nil
	}
	return *p, nil
}

// Timeline 指定 scope 的压力时间轴
// 失败（除重新认证外）一律给空列表，由调用方呈现"无数据"
func (s *TreatmentService) Timeline(ctx context.Context, requestID, userID, date string, scope timeline.Scope, sessionID, setID string) ([]models.PressureSample, error) {
	diag := newDiagnostics(requestID)
	defer s.flushDiagnostics(diag)

	events, _, err := s.resolveScope(ctx, diag, userID, date, scope, sessionID, setID)
	if err != nil {
		return nil, err
	}
	samples, skipped := timeline.Compose(events)
	if skipped > 0 {
		diag.add("events_skipped", date, fmt.Sprintf("%d events decoded to zero samples", skipped))
		s.logger.Debug("timeline composition skipped events",
			zap.String("user_id", userID),
			zap.String("date", date),
			zap.Int("skipped", skipped),
		)
	}
	return samples, nil
}

// Breaths 呼吸列表：排序后仅保留呼气事件并重新编号，附单值压力汇总与处方目标
func (s *TreatmentService) Breaths(ctx context.Context, requestID, userID, date, sessionID, setID string) ([]models.BreathSummary, error) {
	diag := newDiagnostics(requestID)
	defer s.flushDiagnostics(diag)

	scope := timeline.ScopeDay
	if sessionID != "" {
		scope = timeline.ScopeSession
	}
	if setID != "" {
		scope = timeline.ScopeSet
	}
	events, prescriptionID, err := s.resolveScope(ctx, diag, userID, date, scope, sessionID, setID)
	if err != nil {
		return nil, err
	}

	var presc models.Prescription
	if prescriptionID != "" {
		p, perr := s.fetcher.FetchPrescription(ctx, prescriptionID)
		if perr != nil {
			if errors.Is(perr, client.ErrReauthRequired) {
				return nil, perr
			}
			diag.add("prescription_fetch_failed", prescriptionID, perr.Error())
			presc = FallbackPrescription(prescriptionID, "")
		} else {
			presc = *p
		}
	}

	exhales := timeline.Exhales(events)
	summaries := make([]models.BreathSummary, 0, len(exhales))
	index := 0
	for _, ev := range exhales {
		if ev.Synthetic {
			continue
		}
		index++
		summaries = append(summaries, models.BreathSummary{
			EventID:           ev.EventID,
			Index:             index,
			StartTime:         ev.StartTime,
			EndTime:           ev.EndTime,
			DurationMs:        ev.DurationMs,
			AvgPressure:       waveform.AveragePressure(ev.Waveform),
			PressureTarget:    presc.PressureTarget,
			PressureRange:     presc.PressureRange,
			DurationTargetSec: presc.BreathDurationSec,
		})
	}
	return summaries, nil
}

// ComplianceReport 依从性报告：实际量 vs 处方目标量，可选与对比区间的差值
type ComplianceReport struct {
	UserID        string                     `json:"user_id"`
	From          string                     `json:"from"`
	To            string                     `json:"to"`
	Actual        models.ComplianceSnapshot  `json:"actual"`
	Targets       models.ComplianceSnapshot  `json:"targets"`
	Days          []models.DayRecord         `json:"days"`
	Prescriptions []models.Prescription      `json:"prescriptions"`
	Delta         *models.ComplianceSnapshot `json:"delta,omitempty"`
}

// Compliance 区间依从性汇总（from==to 即单日粒度）
func (s *TreatmentService) Compliance(ctx context.Context, requestID, userID, from, to, compareFrom, compareTo string) (*ComplianceReport, error) {
	diag := newDiagnostics(requestID)
	defer s.flushDiagnostics(diag)

	dates, err := DatesBetween(from, to)
	if err != nil {
		return nil, err
	}

	username := "NaN"
	if p, uerr := s.fetcher.FetchUser(ctx, userID); uerr == nil {
		username = p.Username
	} else if errors.Is(uerr, client.ErrReauthRequired) {
		return nil, uerr
	} else {
		diag.add("user_fetch_failed", userID, uerr.Error())
	}

	rr, err := s.FetchRange(ctx, diag, userID, username, dates)
	if err != nil {
		return nil, err
	}

	actual := sumDays(rr.Days)
	report := &ComplianceReport{
		UserID:        userID,
		From:          from,
		To:            to,
		Actual:        actual,
		Targets:       compliance.RangeRollup(rr.Prescriptions, dates),
		Days:          rr.Days,
		Prescriptions: rr.Prescriptions,
	}

	if compareFrom != "" && compareTo != "" {
		if compareDates, cerr := DatesBetween(compareFrom, compareTo); cerr == nil {
			crr, cerr := s.FetchRange(ctx, diag, userID, username, compareDates)
			if cerr != nil {
				return nil, cerr
			}
			previous := sumDays(crr.Days)
			delta := compliance.Delta(&actual, &previous)
			report.Delta = &delta
		} else {
			// 对比区间不可用时以全零快照代入，不让报告失败
			diag.add("bad_compare_range", compareFrom+".."+compareTo, cerr.Error())
			delta := compliance.Delta(&actual, nil)
			report.Delta = &delta
		}
	}
	return report, nil
}

func sumDays(days []models.DayRecord) models.ComplianceSnapshot {
	var total models.ComplianceSnapshot
	for _, d := range days {
		total.Sessions += d.ActSessions
		total.Sets += d.Sets
		total.Breaths += d.Breaths
	}
	return total
}

// resolveScope 解析 scope 对应的事件集合与处方 ID
// 指定的 session/set 在日详情里找不到时退回第一个兄弟节点并记诊断；
// 日详情抓取失败但带了具体 ID 时，直连对应端点补救
func (s *TreatmentService) resolveScope(ctx context.Context, diag *diagnostics, userID, date string, scope timeline.Scope, sessionID, setID string) ([]models.BreathEvent, string, error) {
	day, err := s.fetcher.FetchDay(ctx, userID, date)
	if err != nil {
		if errors.Is(err, client.ErrReauthRequired) {
			return nil, "", err
		}
		s.logger.Warn("day fetch failed",
			zap.String("user_id", userID),
			zap.String("date", date),
			zap.Error(err),
		)
		diag.add("day_fetch_failed", date, err.Error())
		switch {
		case scope == timeline.ScopeSet && setID != "":
			set, serr := s.fetcher.FetchSet(ctx, setID)
			if serr == nil {
				return timeline.FlattenSet(*set), "", nil
			}
			if errors.Is(serr, client.ErrReauthRequired) {
				return nil, "", serr
			}
		case scope == timeline.ScopeSession && sessionID != "":
			sess, serr := s.fetcher.FetchSession(ctx, sessionID)
			if serr == nil {
				return timeline.FlattenSession(*sess), sess.PrescriptionID, nil
			}
			if errors.Is(serr, client.ErrReauthRequired) {
				return nil, "", serr
			}
		}
		return nil, "", nil
	}

	if len(day.Sessions) == 0 {
		return nil, "", nil
	}
	sessions := make([]models.TreatmentSession, len(day.Sessions))
	copy(sessions, day.Sessions)
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].StartTime < sessions[j].StartTime
	})

	switch scope {
	case timeline.ScopeSession:
		sess := s.findSession(diag, sessions, sessionID, date)
		return timeline.FlattenSession(sess), sess.PrescriptionID, nil
	case timeline.ScopeSet:
		sess, set, ok := s.findSet(diag, sessions, setID, date)
		if !ok {
			return nil, sess.PrescriptionID, nil
		}
		return timeline.FlattenSet(set), sess.PrescriptionID, nil
	default:
		return timeline.FlattenDay(*day), sessions[0].PrescriptionID, nil
	}
}

func (s *TreatmentService) findSession(diag *diagnostics, sessions []models.TreatmentSession, sessionID, date string) models.TreatmentSession {
	if sessionID != "" {
		for _, sess := range sessions {
			if sess.SessionID == sessionID {
				return sess
			}
		}
		diag.add("scope_fallback", sessionID, "session not found in day detail, using first session")
		s.logger.Info("session not found in day detail, falling back to first session",
			zap.String("session_id", sessionID),
			zap.String("date", date),
		)
	}
	return sessions[0]
}

func (s *TreatmentService) findSet(diag *diagnostics, sessions []models.TreatmentSession, setID, date string) (models.TreatmentSession, models.TreatmentSet, bool) {
	if setID != "" {
		for _, sess := range sessions {
			for _, set := range sess.Sets {
				if set.SetID == setID {
					return sess, set, true
				}
			}
		}
		diag.add("scope_fallback", setID, "set not found in day detail, using first set")
		s.logger.Info("set not found in day detail, falling back to first set",
			zap.String("set_id", setID),
			zap.String("date", date),
		)
	}
	for _, sess := range sessions {
		if len(sess.Sets) > 0 {
			sets := make([]models.TreatmentSet, len(sess.Sets))
			copy(sets, sess.Sets)
			sort.SliceStable(sets, func(i, j int) bool {
				return sets[i].StartTime < sets[j].StartTime
			})
			return sess, sets[0], true
		}
	}
	return sessions[0], models.TreatmentSet{}, false
}
