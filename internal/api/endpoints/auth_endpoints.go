package endpoints

import (
	"net/http"

	"studio-backend/internal/dto"
	"studio-backend/internal/service/session"
)

type AuthEndpoints interface {
	Workspaces(http.ResponseWriter, *http.Request) error
	RequestCode(http.ResponseWriter, *http.Request) error
	Redeem(http.ResponseWriter, *http.Request) error
	Refresh(http.ResponseWriter, *http.Request) error
	Logout(http.ResponseWriter, *http.Request) error
	Me(http.ResponseWriter, *http.Request) error
}

type authEndpoints struct {
	service *session.Service
}

func NewAuthEndpoints(service *session.Service) AuthEndpoints {
	return &authEndpoints{service: service}
}

func (h *authEndpoints) Workspaces(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleWorkspaces,
	})
}

func (h *authEndpoints) RequestCode(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleRequestCode,
	})
}

func (h *authEndpoints) Redeem(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleRedeem,
	})
}

func (h *authEndpoints) Refresh(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleRefresh,
	})
}

func (h *authEndpoints) Logout(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleLogout,
	})
}

func (h *authEndpoints) Me(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleMe,
	})
}

func (h *authEndpoints) handleWorkspaces(w http.ResponseWriter, r *http.Request) error {
	var req dto.WorkspaceLookupRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	workspaces, err := h.service.LookupTenants(r.Context(), session.LookupParams{Email: req.Email})
	if err != nil {
		return err
	}

	resp := dto.WorkspaceLookupResponse{Workspaces: make([]dto.WorkspaceOption, 0, len(workspaces))}
	for _, ws := range workspaces {
		resp.Workspaces = append(resp.Workspaces, dto.WorkspaceOption{
			MembershipID: ws.MembershipID,
			TenantID:     ws.TenantID,
			TenantName:   ws.TenantName,
			TenantSlug:   ws.TenantSlug,
			Role:         string(ws.Role),
			Status:       ws.Status,
		})
	}
	return WriteJSON(w, http.StatusOK, resp)
}

// handleRequestCode answers 202 whether or not a code was sent so the
// endpoint cannot be used to probe memberships.
func (h *authEndpoints) handleRequestCode(w http.ResponseWriter, r *http.Request) error {
	var req dto.RequestCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	if err := h.service.RequestCode(r.Context(), session.RequestCodeParams{
		Email:        req.Email,
		MembershipID: req.MembershipID,
	}); err != nil {
		return err
	}
	return WriteJSON(w, http.StatusAccepted, dto.SuccessResponse{Success: true})
}

func (h *authEndpoints) handleRedeem(w http.ResponseWriter, r *http.Request) error {
	var req dto.RedeemCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	result, err := h.service.RedeemCode(r.Context(), session.RedeemParams{
		Email:        req.Email,
		MembershipID: req.MembershipID,
		Code:         req.Code,
	})
	if err != nil {
		return err
	}
	return WriteJSON(w, http.StatusOK, toAuthResponse(result))
}

func (h *authEndpoints) handleRefresh(w http.ResponseWriter, r *http.Request) error {
	var req dto.RefreshRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	result, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		return err
	}
	return WriteJSON(w, http.StatusOK, toAuthResponse(result))
}

func (h *authEndpoints) handleLogout(w http.ResponseWriter, r *http.Request) error {
	var req dto.RefreshRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		return err
	}
	return WriteJSON(w, http.StatusOK, dto.SuccessResponse{Success: true})
}

func (h *authEndpoints) handleMe(w http.ResponseWriter, r *http.Request) error {
	sess, err := sessionFrom(r)
	if err != nil {
		return err
	}

	profile, err := h.service.Me(r.Context(), sess)
	if err != nil {
		return err
	}

	resp := dto.MeResponse{Session: toSessionResponse(profile.Session)}
	if profile.Tenant != nil {
		tenant := toTenantResponse(*profile.Tenant, false)
		resp.Tenant = &tenant
	}
	return WriteJSON(w, http.StatusOK, resp)
}
