package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"wisefido-therapy/internal/store"

	"go.uber.org/zap"
)

// Diagnostic 单条抓取诊断（写入诊断侧信道）
type Diagnostic struct {
	Kind    string `json:"kind"` // day_fetch_failed / prescription_fetch_failed / scope_fallback / events_skipped
	Subject string `json:"subject"`
	Detail  string `json:"detail,omitempty"`
	At      int64  `json:"at"`
}

// diagnostics 单个请求的诊断累积器（多个并发日抓取共享，需要加锁）
type diagnostics struct {
	mu        sync.Mutex
	requestID string
	entries   []Diagnostic
}

func newDiagnostics(requestID string) *diagnostics {
	return &diagnostics{requestID: requestID}
}

func (d *diagnostics) add(kind, subject, detail string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = append(d.entries, Diagnostic{
		Kind:    kind,
		Subject: subject,
		Detail:  detail,
		At:      time.Now().UnixMilli(),
	})
}

func (d *diagnostics) snapshot() []Diagnostic {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Diagnostic, len(d.entries))
	copy(out, d.entries)
	return out
}

// flushDiagnostics 把请求级诊断写入 KV
// 用独立的超时 context：请求本身被取消时诊断仍要落盘
func (s *TreatmentService) flushDiagnostics(d *diagnostics) {
	entries := d.snapshot()
	if len(entries) == 0 {
		return
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.kv.Set(ctx, store.DiagKey(d.requestID), string(payload), s.diagTTL); err != nil {
		s.logger.Debug("failed to write diagnostics",
			zap.String("request_id", d.requestID),
			zap.Error(err),
		)
	}
}
