package httpapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
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

// HandleHandler 支持 http.Handler 接口（用于 /metrics 等）
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterIngestRoutes 设备上报路由
func (r *Router) RegisterIngestRoutes(h *IngestHandler) {
	r.Handle("/device/api/v1/vitals/ingest", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Ingest(w, req)
	})
}

// RegisterAuthRoutes 会话路由
func (r *Router) RegisterAuthRoutes(h *AuthHandler) {
	r.Handle("/auth/api/v1/login", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Login(w, req)
	})
	r.Handle("/auth/api/v1/logout", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Logout(w, req)
	})
}

// RegisterStreamRoutes 实时推送路由（SSE + WebSocket）
func (r *Router) RegisterStreamRoutes(sse *StreamHandler, ws *WSHandler) {
	r.Handle("/data/api/v1/vitals/stream", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		sse.Stream(w, req)
	})
	r.Handle("/data/api/v1/vitals/stream/ws", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		ws.Stream(w, req)
	})
}

// RegisterVitalsRoutes 查询路由
func (r *Router) RegisterVitalsRoutes(h *VitalsHandler) {
	r.Handle("/data/api/v1/vitals/latest", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Latest(w, req)
	})
	r.Handle("/data/api/v1/fhir/export", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.FHIRExport(w, req)
	})
}

// RegisterOpsRoutes 运维路由：健康检查 + Prometheus 指标
func (r *Router) RegisterOpsRoutes() {
	r.Handle("/healthz", Healthz)
	r.HandleHandler("/metrics", promhttp.Handler())
}
