package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	orderdomain "github.com/qhato/taxorders/internal/order/domain"
	"github.com/qhato/taxorders/pkg/logger"
)

// previewRequest is the client-sent request on the tax preview channel: a
// single delivery point and subtotal to compute, without persisting an order.
type previewRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp string  `json:"timestamp"`
	Subtotal  string  `json:"subtotal"`
}

type previewResult struct {
	ReportingCode    string            `json:"reporting_code"`
	CompositeTaxRate string            `json:"composite_tax_rate"`
	TaxAmount        string            `json:"tax_amount"`
	TotalAmount      string            `json:"total_amount"`
	StateRate        string            `json:"state_rate"`
	CountyRate       string            `json:"county_rate"`
	CityRate         string            `json:"city_rate"`
	SpecialRates     string            `json:"special_rates"`
}

type previewErrorBody struct {
	Code   string   `json:"code"`
	Detail string   `json:"detail"`
	Fields []string `json:"fields,omitempty"`
}

type previewResponse struct {
	OK     bool              `json:"ok"`
	Result *previewResult    `json:"result,omitempty"`
	Error  *previewErrorBody `json:"error,omitempty"`
}

// TaxPreviewHandler serves a request/response loop on a single WebSocket
// connection: each inbound JSON message is validated, computed, and
// answered with an {ok, result|error} envelope. The connection stays open
// across many requests until the peer disconnects.
func TaxPreviewHandler(ctx context.Context, conn *websocket.Conn, calc *orderdomain.Calculator) {
	defer conn.Close()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.WithError(err).Debug("tax preview channel: unexpected close")
			}
			return
		}

		var req previewRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			resp := errorResponse("invalid_json", "request body is not valid JSON", nil)
			if werr := conn.WriteJSON(resp); werr != nil {
				return
			}
			continue
		}

		resp := computePreview(calc, req)
		if err := conn.WriteJSON(resp); err != nil {
			return
		}
	}
}

func computePreview(calc *orderdomain.Calculator, req previewRequest) previewResponse {
	if req.Latitude < -90 || req.Latitude > 90 {
		return errorResponse("validation_error", "latitude must be between -90 and 90", []string{"latitude"})
	}
	if req.Longitude < -180 || req.Longitude > 180 {
		return errorResponse("validation_error", "longitude must be between -180 and 180", []string{"longitude"})
	}

	ts, err := time.Parse(time.RFC3339, req.Timestamp)
	if err != nil {
		return errorResponse("validation_error", "invalid timestamp: "+err.Error(), []string{"timestamp"})
	}

	subtotal, err := decimal.NewFromString(req.Subtotal)
	if err != nil {
		return errorResponse("validation_error", "invalid subtotal: "+err.Error(), []string{"subtotal"})
	}

	order, err := calc.Compute(orderdomain.ComputeInput{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Timestamp: ts,
		Subtotal:  subtotal,
	})
	if err != nil {
		switch {
		case errors.Is(err, orderdomain.ErrOutsideCoverage):
			return errorResponse("outside_coverage", err.Error(), nil)
		case errors.Is(err, orderdomain.ErrRateNotFound):
			return errorResponse("tax_rate_not_found", err.Error(), nil)
		default:
			return errorResponse("internal_error", "failed to compute tax preview", nil)
		}
	}

	return previewResponse{
		OK: true,
		Result: &previewResult{
			ReportingCode:    order.ReportingCode,
			CompositeTaxRate: order.CompositeTaxRate.String(),
			TaxAmount:        order.TaxAmount.String(),
			TotalAmount:      order.TotalAmount.String(),
			StateRate:        order.StateRate.String(),
			CountyRate:       order.CountyRate.String(),
			CityRate:         order.CityRate.String(),
			SpecialRates:     order.SpecialRates.String(),
		},
	}
}

func errorResponse(code, detail string, fields []string) previewResponse {
	return previewResponse{OK: false, Error: &previewErrorBody{Code: code, Detail: detail, Fields: fields}}
}
