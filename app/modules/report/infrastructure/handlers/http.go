package reporthandlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	analysisservice "github.com/pedrolmn/chess-report/app/modules/analysis/application"
	gamedomain "github.com/pedrolmn/chess-report/app/modules/games/domain"
	reportservice "github.com/pedrolmn/chess-report/app/modules/report/application"
	reportdb "github.com/pedrolmn/chess-report/app/modules/report/infrastructure/repositories"
	"github.com/pedrolmn/chess-report/internal/observability/attr"
)

// Handler provides the HTTP API for reports.
type Handler struct {
	service *reportservice.Service
	tokens  *reportservice.TokenIssuer
	logger  *slog.Logger
}

// NewHandler creates the report HTTP handler.
func NewHandler(service *reportservice.Service, tokens *reportservice.TokenIssuer, logger *slog.Logger) *Handler {
	return &Handler{service: service, tokens: tokens, logger: logger}
}

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Router creates and configures the HTTP router.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/reports", func(r chi.Router) {
			r.Post("/", h.CreateReport)
			r.Get("/", h.ListReports)

			r.Route("/{reportID}", func(r chi.Router) {
				r.Get("/", h.GetReport)
				r.Get("/context", h.GetContext)
				r.Get("/games", h.GetGames)
				r.Post("/share", h.CreateShareLink)

				r.Get("/charts/winrate", h.WinrateChart)
				r.Get("/charts/status", h.StatusChart)
				r.Get("/charts/openings", h.OpeningsChart)
				r.Get("/charts/rating-history", h.RatingHistoryChart)

				r.Get("/export.csv", h.ExportCSV)
				r.Get("/export.xlsx", h.ExportXLSX)
			})
		})

		r.Get("/shared/{token}", h.GetSharedReport)
	})

	return r
}

// HealthCheck reports liveness.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "ok"})
}

// CreateReport registers a new report and kicks off the build.
func (h *Handler) CreateReport(w http.ResponseWriter, r *http.Request) {
	var req reportservice.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	report, err := h.service.CreateReport(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusAccepted, APIResponse{Success: true, Data: report})
}

// ListReports returns the most recent reports.
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	reports, err := h.service.ListRecent(r.Context(), limit)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeSuccess(w, reports)
}

// GetReport returns report metadata and build status.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.GetReport(r.Context(), chi.URLParam(r, "reportID"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeSuccess(w, report)
}

// GetContext returns the assembled report payload for a selection.
func (h *Handler) GetContext(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.service.GetContext(r.Context(), chi.URLParam(r, "reportID"), q.Get("color"), q.Get("time_control"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeSuccess(w, result)
}

// GetGames returns one page of a report's games.
func (h *Handler) GetGames(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))

	result, err := h.service.GetGames(r.Context(), chi.URLParam(r, "reportID"), page, perPage)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeSuccess(w, result)
}

// CreateShareLink issues a signed token granting read access to one report.
func (h *Handler) CreateShareLink(w http.ResponseWriter, r *http.Request) {
	publicID := chi.URLParam(r, "reportID")
	if _, err := h.service.GetReport(r.Context(), publicID); err != nil {
		h.writeServiceError(w, err)
		return
	}

	token, err := h.tokens.Issue(publicID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeSuccess(w, map[string]string{"token": token})
}

// GetSharedReport resolves a share token to its report payload.
func (h *Handler) GetSharedReport(w http.ResponseWriter, r *http.Request) {
	publicID, err := h.tokens.Verify(chi.URLParam(r, "token"))
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, err)
		return
	}

	q := r.URL.Query()
	result, err := h.service.GetContext(r.Context(), publicID, q.Get("color"), q.Get("time_control"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeSuccess(w, result)
}

// WinrateChart renders the stacked winrate chart as PNG.
func (h *Handler) WinrateChart(w http.ResponseWriter, r *http.Request) {
	h.renderChart(w, r, func(rows []gamedomain.PlayerGame, color string) ([]byte, error) {
		return analysisservice.WinrateChart(analysisservice.PrepareWinrateData(rows))
	})
}

// StatusChart renders the game status donut as PNG.
func (h *Handler) StatusChart(w http.ResponseWriter, r *http.Request) {
	h.renderChart(w, r, func(rows []gamedomain.PlayerGame, color string) ([]byte, error) {
		return analysisservice.StatusChart(rows)
	})
}

// OpeningsChart renders the per-opening performance bars as PNG.
func (h *Handler) OpeningsChart(w http.ResponseWriter, r *http.Request) {
	h.renderChart(w, r, func(rows []gamedomain.PlayerGame, color string) ([]byte, error) {
		return analysisservice.OpeningStatsChart(rows, color)
	})
}

// RatingHistoryChart renders the player rating timeline as PNG.
func (h *Handler) RatingHistoryChart(w http.ResponseWriter, r *http.Request) {
	h.renderChart(w, r, func(rows []gamedomain.PlayerGame, color string) ([]byte, error) {
		return analysisservice.RatingHistoryChart(rows)
	})
}

// renderChart loads a report's games under the query filters and writes the
// rendered PNG.
func (h *Handler) renderChart(w http.ResponseWriter, r *http.Request, render func([]gamedomain.PlayerGame, string) ([]byte, error)) {
	q := r.URL.Query()
	rows, err := h.service.AllGames(r.Context(), chi.URLParam(r, "reportID"), q.Get("time_control"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	png, err := render(rows, q.Get("color"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

// ExportCSV streams all games of a report as CSV.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	publicID := chi.URLParam(r, "reportID")
	rows, err := h.service.AllGames(r.Context(), publicID, r.URL.Query().Get("time_control"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	body, err := reportservice.ExportCSV(rows)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="games_`+publicID+`.csv"`)
	w.Write(body)
}

// ExportXLSX streams all games of a report as an Excel workbook.
func (h *Handler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	publicID := chi.URLParam(r, "reportID")
	rows, err := h.service.AllGames(r.Context(), publicID, r.URL.Query().Get("time_control"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	body, err := reportservice.ExportXLSX(rows)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="games_`+publicID+`.xlsx"`)
	w.Write(body)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", attr.Error(err))
	}
}

func (h *Handler) writeSuccess(w http.ResponseWriter, data any) {
	h.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, APIResponse{Success: false, Error: err.Error()})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, reportdb.ErrReportNotFound):
		h.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, reportservice.ErrReportNotReady):
		h.writeError(w, http.StatusAccepted, err)
	case errors.Is(err, reportservice.ErrInvalidUsername),
		errors.Is(err, reportservice.ErrInvalidPlatform),
		errors.Is(err, reportservice.ErrInvalidMaxGames),
		errors.Is(err, reportservice.ErrInvalidTimeControl),
		errors.Is(err, reportservice.ErrInvalidSince):
		h.writeError(w, http.StatusBadRequest, err)
	default:
		h.logger.Error("Request failed", attr.Error(err))
		h.writeError(w, http.StatusInternalServerError, err)
	}
}
