package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/askdb/askdb/internal/gateway"
	"github.com/askdb/askdb/internal/telemetry"
)

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.gateway.Connect(r.Context(), req.TenantID)
	if err != nil {
		s.gatewayError(w, r, err, req)
		return
	}

	jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	preview := gateway.PreviewRequest{
		TenantID:   req.TenantID,
		TableName:  req.TableName,
		PageNumber: req.PageNumber,
		OrderBy:    req.OrderBy,
	}
	if req.Where != nil {
		preview.Where = &gateway.WhereClause{
			Statement: req.Where.Statement,
			Values:    req.Where.Values,
		}
	}

	data, err := s.gateway.Preview(r.Context(), preview)
	if err != nil {
		s.gatewayError(w, r, err, req)
		return
	}

	jsonResponse(w, http.StatusOK, data)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.gateway.Query(r.Context(), req.TenantID, req.SQL)
	if err != nil {
		s.gatewayError(w, r, err, req)
		return
	}

	jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.gateway.Ask(r.Context(), req.TenantID, req.TableName, req.Question)
	if err != nil {
		s.gatewayError(w, r, err, req)
		return
	}

	jsonResponse(w, http.StatusOK, result)
}

// gatewayError maps the gateway error taxonomy to HTTP statuses. Server-side
// failures are shipped to the telemetry sink with the request payload; the
// client only sees a generic message for those.
func (s *Server) gatewayError(w http.ResponseWriter, r *http.Request, err error, payload any) {
	var (
		inputErr      *gateway.InputError
		credErr       *gateway.CredentialError
		validationErr *gateway.ValidationError
	)
	switch {
	case errors.As(err, &inputErr):
		errorResponse(w, http.StatusBadRequest, inputErr.Msg)
		return
	case errors.As(err, &credErr):
		errorResponse(w, http.StatusBadRequest, "could not resolve database credentials")
		return
	case errors.As(err, &validationErr):
		errorResponse(w, http.StatusBadRequest, validationErr.Msg)
		return
	}

	trace := requestIDFromContext(r.Context())
	s.logger.Error("request failed",
		"method", r.Method, "path", r.URL.Path, "request_id", trace, "error", err)
	s.sink.Emit(telemetry.Event{
		Message: "request failed",
		Error:   err.Error(),
		Trace:   trace,
		Method:  r.Method,
		Path:    r.URL.Path,
		Payload: payload,
	})
	errorResponse(w, http.StatusInternalServerError, "internal error")
}
