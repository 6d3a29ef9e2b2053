// Package http exposes the order calculator and order query endpoints.
package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/qhato/taxorders/internal/importcsv"
	"github.com/qhato/taxorders/internal/order/domain"
	apperrors "github.com/qhato/taxorders/pkg/errors"
	apphttp "github.com/qhato/taxorders/pkg/http"
	"github.com/qhato/taxorders/pkg/logger"
	"github.com/qhato/taxorders/pkg/metrics"
	"github.com/qhato/taxorders/pkg/middleware"
	"github.com/qhato/taxorders/pkg/validator"
)

type Handler struct {
	calc      *domain.Calculator
	orders    domain.Repository
	validator *validator.Validator
}

func NewHandler(calc *domain.Calculator, orders domain.Repository, v *validator.Validator) *Handler {
	return &Handler{calc: calc, orders: orders, validator: v}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/orders", h.calculateOrderTax)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/stats", h.orderStats)
	r.Get("/orders/stats/daily", h.orderStatsDaily)
	r.Get("/orders/stream/coordinates", h.streamCoordinates)
}

type createOrderRequest struct {
	Latitude  float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Timestamp string  `json:"timestamp" validate:"required"`
	Subtotal  string  `json:"subtotal" validate:"required"`
}

func (h *Handler) calculateOrderTax(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := apphttp.DecodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		writeAppError(w, err)
		return
	}

	ts, err := time.Parse(time.RFC3339, req.Timestamp)
	if err != nil {
		writeAppError(w, apperrors.ValidationError("invalid timestamp"))
		return
	}
	if ts.Before(importcsv.MinSupportedDate) {
		writeAppError(w, apperrors.ValidationError("timestamp cannot be earlier than "+importcsv.MinSupportedDate.Format("2006-01-02")))
		return
	}
	subtotal, err := decimal.NewFromString(req.Subtotal)
	if err != nil {
		writeAppError(w, apperrors.ValidationError("invalid subtotal"))
		return
	}

	order, err := h.calc.Compute(domain.ComputeInput{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Timestamp: ts,
		Subtotal:  subtotal,
	})
	if err != nil {
		writeCalculatorError(w, err)
		return
	}

	if userID := userIDFromContext(r); userID != nil {
		order.AuthorUserID = userID
	}
	if err := h.orders.Create(r.Context(), &order); err != nil {
		writeAppError(w, err)
		return
	}
	if metrics.Business != nil {
		metrics.Business.OrdersComputed.Inc()
		metrics.Business.OrderValue.Observe(order.Subtotal.InexactFloat64())
	}

	apphttp.WriteCreated(w, toOrderRead(order))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	filter := domain.Filter{
		ReportingCode: apphttp.GetQueryParam(r, "reporting_code", ""),
		Sort:          domain.SortMode(apphttp.GetQueryParam(r, "sort", string(domain.SortNewest))),
		Page:          apphttp.GetQueryParamInt(r, "page", 1),
		PageSize:      apphttp.GetQueryParamInt(r, "page_size", 50),
	}

	orders, total, err := h.orders.List(r.Context(), filter)
	if err != nil {
		writeAppError(w, err)
		return
	}

	reads := make([]orderRead, len(orders))
	for i, o := range orders {
		reads[i] = toOrderRead(o)
	}
	apphttp.WritePaginated(w, reads, apphttp.Meta{Page: filter.Page, PerPage: filter.PageSize, Total: int(total)})
}

func (h *Handler) orderStats(w http.ResponseWriter, r *http.Request) {
	from, to := parseStatsRange(r)
	stats, err := h.orders.Stats(r.Context(), from, to)
	if err != nil {
		writeAppError(w, err)
		return
	}
	apphttp.WriteSuccess(w, stats)
}

func (h *Handler) orderStatsDaily(w http.ResponseWriter, r *http.Request) {
	from, to := parseStatsRange(r)
	stats, err := h.orders.StatsDaily(r.Context(), from, to)
	if err != nil {
		writeAppError(w, err)
		return
	}
	apphttp.WriteSuccess(w, stats)
}

// streamCoordinates writes newline-delimited JSON of order coordinates,
// paginated by a keyset on id, rather than building one large in-memory
// response for potentially very large result sets.
func (h *Handler) streamCoordinates(w http.ResponseWriter, r *http.Request) {
	const chunkSize = 1000
	w.Header().Set("Content-Type", "application/x-ndjson")

	afterID := uuid.Nil
	if raw := apphttp.GetQueryParam(r, "after", ""); raw != "" {
		if parsed, err := uuid.Parse(raw); err == nil {
			afterID = parsed
		}
	}

	encoder := newNDJSONEncoder(w)
	for {
		orders, err := h.orders.StreamCoordinates(r.Context(), afterID, chunkSize)
		if err != nil {
			logger.WithError(err).Error("stream coordinates failed")
			return
		}
		if len(orders) == 0 {
			return
		}
		for _, o := range orders {
			if err := encoder.Encode(map[string]interface{}{
				"id": o.ID, "latitude": o.Latitude, "longitude": o.Longitude,
			}); err != nil {
				return
			}
			afterID = o.ID
		}
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		if len(orders) < chunkSize {
			return
		}
	}
}

func parseStatsRange(r *http.Request) (*time.Time, *time.Time) {
	layout := "2006.01.02"
	var from, to *time.Time
	if raw := apphttp.GetQueryParam(r, "from", ""); raw != "" {
		if t, err := time.Parse(layout, raw); err == nil {
			from = &t
		}
	}
	if raw := apphttp.GetQueryParam(r, "to", ""); raw != "" {
		if t, err := time.Parse(layout, raw); err == nil {
			to = &t
		}
	}
	return from, to
}

func writeCalculatorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrOutsideCoverage):
		if metrics.Business != nil {
			metrics.Business.OutsideCoverageHits.Inc()
		}
		writeAppError(w, apperrors.OutsideCoverage(err.Error()))
	case errors.Is(err, domain.ErrRateNotFound):
		if metrics.Business != nil {
			metrics.Business.RateNotFoundHits.Inc()
		}
		writeAppError(w, apperrors.RateNotFound(err.Error()))
	default:
		writeAppError(w, apperrors.InternalWrap(err, "failed to compute order tax"))
	}
}

func writeAppError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.InternalWrap(err, "unexpected error")
	}
	apphttp.WriteJSON(w, appErr.StatusCode, appErr)
}

// userIDFromContext reads the caller's identity off the JWT claims the auth
// middleware already validated. Absent or unparseable claims mean an
// anonymous author, which the Order record represents as a nil pointer.
func userIDFromContext(r *http.Request) *uuid.UUID {
	raw := middleware.GetUserID(r.Context())
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}

type orderRead struct {
	ID               string      `json:"id"`
	AuthorLogin      string      `json:"author_login,omitempty"`
	Latitude         float64     `json:"latitude"`
	Longitude        float64     `json:"longitude"`
	Subtotal         string      `json:"subtotal"`
	Timestamp        time.Time   `json:"timestamp"`
	ReportingCode    string      `json:"reporting_code"`
	Jurisdictions    interface{} `json:"jurisdictions"`
	CompositeTaxRate string      `json:"composite_tax_rate"`
	TaxAmount        string      `json:"tax_amount"`
	TotalAmount      string      `json:"total_amount"`
	StateRate        string      `json:"state_rate"`
	CountyRate       string      `json:"county_rate"`
	CityRate         string      `json:"city_rate"`
	SpecialRates     string      `json:"special_rates"`
	CreatedAt        time.Time   `json:"created_at"`
}

func toOrderRead(o domain.Order) orderRead {
	return orderRead{
		ID:               o.ID.String(),
		AuthorLogin:      o.AuthorLogin,
		Latitude:         o.Latitude,
		Longitude:        o.Longitude,
		Subtotal:         o.Subtotal.String(),
		Timestamp:        o.Timestamp,
		ReportingCode:    o.ReportingCode,
		Jurisdictions:    o.Jurisdictions,
		CompositeTaxRate: o.CompositeTaxRate.String(),
		TaxAmount:        o.TaxAmount.String(),
		TotalAmount:      o.TotalAmount.String(),
		StateRate:        o.StateRate.String(),
		CountyRate:       o.CountyRate.String(),
		CityRate:         o.CityRate.String(),
		SpecialRates:     o.SpecialRates.String(),
		CreatedAt:        o.CreatedAt,
	}
}
