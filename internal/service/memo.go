package service

import (
	"context"
	"sort"
	"sync"

	"wisefido-therapy/internal/models"
)

// prescriptionMemo 处方备忘表（单个区间请求内有效，不跨请求）
// 同一处方 ID 至多抓取一次；首见时窗口记为 [当日, 当日]，
// 再次出现只拓宽窗口（min/max），不再发起抓取。
type prescriptionMemo struct {
	mu      sync.Mutex
	entries map[string]*memoEntry
}

type memoEntry struct {
	once     sync.Once
	presc    *models.Prescription
	err      error
	firstDay string
	lastDay  string
}

func newPrescriptionMemo() *prescriptionMemo {
	return &prescriptionMemo{entries: make(map[string]*memoEntry)}
}

// lookup 取处方：首见抓取、后续命中备忘
// 并发的日抓取同时首见同一 ID 时由 sync.Once 保证只发一次请求
func (m *prescriptionMemo) lookup(ctx context.Context, fetcher Fetcher, prescriptionID, day string) (*models.Prescription, error) {
	m.mu.Lock()
	e, ok := m.entries[prescriptionID]
	if !ok {
		e = &memoEntry{firstDay: day, lastDay: day}
		m.entries[prescriptionID] = e
	} else {
		if day < e.firstDay {
			e.firstDay = day
		}
		if day > e.lastDay {
			e.lastDay = day
		}
	}
	m.mu.Unlock()

	e.once.Do(func() {
		e.presc, e.err = fetcher.FetchPrescription(ctx, prescriptionID)
	})
	return e.presc, e.err
}

// snapshot 导出处方列表，适用窗口回填为该处方在本次区间内出现的日期范围
// 抓取失败的条目以全零处方代入（保留用户名），按窗口起始日排序
func (m *prescriptionMemo) snapshot(fallbackUsername string) []models.Prescription {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Prescription, 0, len(m.entries))
	for id, e := range m.entries {
		var p models.Prescription
		if e.err != nil || e.presc == nil {
			p = FallbackPrescription(id, fallbackUsername)
		} else {
			p = *e.presc
		}
		p.AppliedFrom = e.firstDay
		p.AppliedTo = e.lastDay
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AppliedFrom != out[j].AppliedFrom {
			return out[i].AppliedFrom < out[j].AppliedFrom
		}
		return out[i].PrescriptionID < out[j].PrescriptionID
	})
	return out
}
