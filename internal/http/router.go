package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterTreatmentRoutes 注册治疗数据路由（全部只读）
func (r *Router) RegisterTreatmentRoutes(h *TreatmentHandler) {
	get := func(fn http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, req *http.Request) {
			if req.Method != http.MethodGet {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			fn(w, req)
		}
	}

	r.Handle("/therapy/api/v1/treatment/timeline", get(h.GetTimeline))
	r.Handle("/therapy/api/v1/treatment/breaths", get(h.GetBreaths))
	r.Handle("/therapy/api/v1/compliance", get(h.GetCompliance))
	r.Handle("/therapy/api/v1/compliance/export", get(h.ExportCompliance))
	r.Handle("/therapy/api/v1/participant", get(h.GetParticipant))
}
