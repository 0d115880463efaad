package endpoints

import (
	"net/http"
	"strconv"
	"time"

	"studio-backend/internal/dto"
	"studio-backend/internal/service/impersonation"
)

type PlatformEndpoints interface {
	Impersonations(http.ResponseWriter, *http.Request) error
	Audit(http.ResponseWriter, *http.Request) error
}

type platformEndpoints struct {
	service *impersonation.Service
}

func NewPlatformEndpoints(service *impersonation.Service) PlatformEndpoints {
	return &platformEndpoints{service: service}
}

func (h *platformEndpoints) Impersonations(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleImpersonate,
	})
}

func (h *platformEndpoints) Audit(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleAudit,
	})
}

func (h *platformEndpoints) handleImpersonate(w http.ResponseWriter, r *http.Request) error {
	sess, err := sessionFrom(r)
	if err != nil {
		return err
	}

	var req dto.ImpersonationRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	result, err := h.service.Impersonate(r.Context(), sess, req.TenantID)
	if err != nil {
		return err
	}

	return WriteJSON(w, http.StatusCreated, dto.ImpersonationResponse{
		Code:         result.Code,
		MembershipID: result.MembershipID,
		TenantID:     result.TenantID,
		ExpiresAt:    result.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (h *platformEndpoints) handleAudit(w http.ResponseWriter, r *http.Request) error {
	sess, err := sessionFrom(r)
	if err != nil {
		return err
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	events, err := h.service.History(r.Context(), sess, limit)
	if err != nil {
		return err
	}

	resp := dto.AuditListResponse{Events: make([]dto.AuditEventResponse, 0, len(events))}
	for _, e := range events {
		resp.Events = append(resp.Events, toAuditEventResponse(e))
	}
	return WriteJSON(w, http.StatusOK, resp)
}
