package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/radieske/palpitei-api/internal/catalog/changes"
	"github.com/radieske/palpitei-api/internal/catalog/model"
	"github.com/radieske/palpitei-api/internal/catalog/service"
	"github.com/radieske/palpitei-api/internal/shared/metrics"
)

// Server expõe a API REST do catálogo (times, campeonatos, jogos, mercados e ingest)
type Server struct {
	log     *zap.Logger
	catalog *service.Catalog
	metrics *metrics.HTTP // opcional
	changes *changes.Hub  // opcional
	now     func() time.Time
}

// NewServer instancia o servidor HTTP; m pode ser nil
func NewServer(log *zap.Logger, catalog *service.Catalog, m *metrics.HTTP) *Server {
	return &Server{log: log, catalog: catalog, metrics: m, now: time.Now}
}

// WithChanges expõe o feed de alterações em GET /api/changes (WebSocket)
func (s *Server) WithChanges(h *changes.Hub) *Server {
	s.changes = h
	return s
}

// Router retorna o roteador HTTP com todas as rotas da API
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(withCORS, s.observe)

	// precisam vir antes dos sub-roteadores para serem herdados
	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	r.Get("/health", s.health)
	r.Post("/api/ingest", s.ingest)
	if s.changes != nil {
		r.Get("/api/changes", s.changes.HandleWS)
	}

	r.Route("/api/teams", func(r chi.Router) { mountCollection(s, r, s.catalog.Teams) })
	r.Route("/api/championships", func(r chi.Router) { mountCollection(s, r, s.catalog.Championships) })
	r.Route("/api/games", func(r chi.Router) { mountCollection(s, r, s.catalog.Games) })

	r.Route("/api/markets", func(r chi.Router) {
		markets := s.catalog.Markets
		r.Get("/", s.listMarkets)
		r.Post("/", s.createMarket)
		r.Post("/processed", s.markMarkets(markets.MarkProcessed))
		r.Post("/profitable", s.markMarkets(markets.MarkProfitable))
		r.Get("/{id}", getHandler(s, markets.Repository))
		r.Delete("/{id}", deleteHandler(s, markets.Repository))
	})
	return r
}

// withCORS libera qualquer origem; OPTIONS responde 204 sem passar adiante
func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// observe registra métricas/log da requisição e converte panics em 500
// (somente se a resposta ainda não começou)
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.log.Error("handler panic",
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
				)
				if ww.Status() == 0 {
					writeJSON(ww, http.StatusInternalServerError, errorBody("INTERNAL_SERVER_ERROR"))
				}
			}

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			s.record(r.Method, route, status, time.Since(start))
		}()

		next.ServeHTTP(ww, r)
	})
}

func (s *Server) record(method, route string, status int, d time.Duration) {
	s.log.Debug("request",
		zap.String("method", method),
		zap.String("route", route),
		zap.Int("status", status),
		zap.Duration("latency", d),
	)
	if s.metrics == nil {
		return
	}
	s.metrics.Requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	s.metrics.Duration.WithLabelValues(method, route).Observe(d.Seconds())
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func errorBody(code any) map[string]any {
	return map[string]any{"error": code}
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, errorBody("NOT_FOUND"))
}

// health responde {ok, now}
func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "now": model.Timestamp(s.now())})
}
