package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopfabric/dispatch/internal/dispatch"
	"github.com/shopfabric/dispatch/pkg/carrier"
	"go.uber.org/zap"
)

type dispatchRequest struct {
	Carrier     string `json:"carrier"`
	ForceResend bool   `json:"forceResend"`
	UserID      string `json:"userId"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type orderEventRequest struct {
	OrderID string `json:"orderId"`
	Event   string `json:"event"`
}

type carrierInfo struct {
	Name           string   `json:"name"`
	DisplayName    string   `json:"displayName"`
	RequiredConfig []string `json:"requiredConfig"`
	PickupPoints   bool     `json:"supportsPickupPoints"`
	COD            bool     `json:"supportsCOD"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	if req.Carrier == "" {
		writeError(w, http.StatusBadRequest, "carrier is required", "")
		return
	}

	resp, err := s.manager.SendOrder(r.Context(), orderID, req.Carrier, dispatch.SendOptions{
		ForceResend: req.ForceResend,
		UserID:      req.UserID,
	})
	if err != nil {
		s.writeCarrierError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var req cancelRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	resp, err := s.manager.CancelShipment(r.Context(), orderID, req.Reason)
	if err != nil {
		s.writeCarrierError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLabel(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	resp, err := s.manager.GetLabel(r.Context(), orderID)
	if err != nil {
		s.writeCarrierError(w, r, err)
		return
	}
	if len(resp.Data) > 0 {
		contentType := "application/octet-stream"
		if resp.Format == "pdf" {
			contentType = "application/pdf"
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		w.Write(resp.Data)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTracking(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	ts, err := s.manager.RefreshTracking(r.Context(), orderID)
	if err != nil {
		s.writeCarrierError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

func (s *Server) handleCarriers(w http.ResponseWriter, r *http.Request) {
	infos := make([]carrierInfo, 0, s.registry.Count())
	for _, p := range s.registry.All() {
		feats := p.Features()
		infos = append(infos, carrierInfo{
			Name:           p.Name(),
			DisplayName:    p.DisplayName(),
			RequiredConfig: p.RequiredConfig(),
			PickupPoints:   feats.SupportsPickupPoints,
			COD:            feats.SupportsCOD,
		})
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handlePickupPoints(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	companyID := r.URL.Query().Get("companyId")
	city := r.URL.Query().Get("city")
	if companyID == "" {
		writeError(w, http.StatusBadRequest, "companyId is required", "")
		return
	}

	points, err := s.manager.PickupPoints(r.Context(), companyID, slug, city)
	if err != nil {
		s.writeCarrierError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	orderID := chi.URLParam(r, "orderID")

	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body", "")
		return
	}
	signature := r.Header.Get("X-Signature")

	ts, err := s.manager.ProcessWebhook(r.Context(), orderID, slug, payload, signature)
	if err != nil {
		s.writeCarrierError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

func (s *Server) handleOrderEvent(w http.ResponseWriter, r *http.Request) {
	var req orderEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	if req.OrderID == "" || req.Event == "" {
		writeError(w, http.StatusBadRequest, "orderId and event are required", "")
		return
	}

	s.autoSender.OrderEvent(req.OrderID, req.Event)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// writeCarrierError translates domain errors into HTTP status codes.
func (s *Server) writeCarrierError(w http.ResponseWriter, r *http.Request, err error) {
	var cerr *carrier.CarrierError
	if errors.As(err, &cerr) {
		status := http.StatusBadGateway
		if cerr.StatusCode >= 400 && cerr.StatusCode < 500 {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, cerr.Message, cerr.Code)
		return
	}

	switch {
	case errors.Is(err, carrier.ErrOrderNotFound),
		errors.Is(err, carrier.ErrIntegrationNotFound),
		errors.Is(err, carrier.ErrCarrierNotFound):
		writeError(w, http.StatusNotFound, err.Error(), "")
	case errors.Is(err, carrier.ErrAlreadySent):
		writeError(w, http.StatusConflict, err.Error(), "")
	case errors.Is(err, carrier.ErrInvalidAddress),
		errors.Is(err, carrier.ErrInvalidConfig),
		errors.Is(err, carrier.ErrInvalidOrder):
		writeError(w, http.StatusUnprocessableEntity, err.Error(), "")
	case errors.Is(err, carrier.ErrCancellationNotAllowed),
		errors.Is(err, carrier.ErrLabelNotAvailable):
		writeError(w, http.StatusConflict, err.Error(), "")
	case errors.Is(err, carrier.ErrNotImplemented):
		writeError(w, http.StatusNotImplemented, err.Error(), "")
	case errors.Is(err, carrier.ErrAuthenticationFailed):
		writeError(w, http.StatusBadGateway, err.Error(), "")
	default:
		s.logger.Ctx(r.Context()).Error("Unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error", "")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}
