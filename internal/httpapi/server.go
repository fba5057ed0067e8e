package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hdi1d/internal/errs"
	"hdi1d/pkg/types"
)

// NewMux builds the router for the UI and the JSON API.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	// Compression for JSON and HTML; images are already compressed.
	r.Use(middleware.Compress(5, "application/json", "text/html", "text/plain"))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: orDefault(corsAllowedOrigins, []string{"*"}),
			AllowedMethods: orDefault(corsAllowedMethods, []string{http.MethodGet, http.MethodPost, http.MethodOptions}),
			AllowedHeaders: orDefault(corsAllowedHeaders, []string{"Content-Type", "X-Log-Level", "X-Request-Id"}),
			MaxAge:         300,
		}))
	}

	r.Group(func(r chi.Router) {
		r.Use(inflightMiddleware)

		r.Get("/", indexHandler(svc))

		r.Get("/variants", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, svc.Options())
		})

		r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, svc.Status())
		})

		r.Post("/generate", generateHandler(svc))

		r.Post("/switch", func(w http.ResponseWriter, r *http.Request) {
			var req types.SwitchRequest
			if err := decodeJSONBody(w, r, &req); err != nil {
				writeJSONError(w, http.StatusBadRequest, err.Error())
				return
			}
			if strings.TrimSpace(req.Variant) == "" {
				writeError(w, errs.Validation("variant", "is required"), "")
				return
			}
			opID, err := svc.Switch(r.Context(), req.Variant)
			if err != nil {
				writeError(w, err, "")
				return
			}
			writeJSON(w, http.StatusAccepted, types.SwitchResponse{OpID: opID, Variant: req.Variant})
		})

		r.Post("/unload", func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := workContext(r)
			defer cancel()
			if err := svc.Unload(ctx); err != nil {
				if aborted(r) {
					return
				}
				writeError(w, err, "")
				return
			}
			writeJSON(w, http.StatusOK, svc.Status())
		})

		r.Post("/cleanup", func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := workContext(r)
			defer cancel()
			rep, err := svc.Cleanup(ctx)
			if err != nil && !errs.IsCleanup(err) {
				if aborted(r) {
					return
				}
				writeError(w, err, "")
				return
			}
			resp := types.CleanupResponse{Status: "ok", Deleted: baseNames(rep.Deleted), Failed: baseNames(rep.Failed)}
			if err != nil {
				// Partial failures still report what was removed.
				resp.Status = "partial"
				if zlog != nil {
					zlog.Warn().Err(err).Int("failed", len(rep.Failed)).Msg("cleanup")
				}
			}
			writeJSON(w, http.StatusOK, resp)
		})

		r.Get("/history", func(w http.ResponseWriter, r *http.Request) {
			limit := 0
			if v := r.URL.Query().Get("limit"); v != "" {
				n, err := strconv.Atoi(v)
				if err != nil || n < 0 {
					writeError(w, errs.Validation("limit", "must be a non-negative integer"), "")
					return
				}
				limit = n
			}
			entries, err := svc.History(r.Context(), r.URL.Query().Get("variant"), limit)
			if err != nil {
				writeError(w, err, "")
				return
			}
			writeJSON(w, http.StatusOK, types.HistoryResponse{Entries: entries})
		})

		r.Get("/download/{name}", fileHandler(svc.TempFile, true))
		r.Get("/outputs/{name}", fileHandler(svc.OutputFile, false))

		r.Get("/events", eventsHandler(svc))

		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		})

		r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
			if svc.Ready() {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ready"))
				return
			}
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("shutting down"))
		})

		// Prometheus metrics endpoint
		r.Get("/metrics", promhttp.Handler().ServeHTTP)

		if swaggerEnabled {
			MountSwagger(r)
		}
	})

	return r
}

// decodeJSONBody reads a size-limited JSON body into v.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return errInvalidJSON
	}
	return nil
}

func orDefault(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}
