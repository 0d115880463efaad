package endpoints

import (
	"net/http"
	"strings"

	"studio-backend/internal/dto"
	tenantservice "studio-backend/internal/service/tenant"
)

type TenantPaths struct {
	IntegrationsPrefix string
}

type TenantEndpoints interface {
	Signup(http.ResponseWriter, *http.Request) error
	Tenant(http.ResponseWriter, *http.Request) error
	Branding(http.ResponseWriter, *http.Request) error
	Integration(http.ResponseWriter, *http.Request) error
}

type tenantEndpoints struct {
	service *tenantservice.Service
	paths   TenantPaths
}

func NewTenantEndpoints(service *tenantservice.Service, paths TenantPaths) TenantEndpoints {
	return &tenantEndpoints{service: service, paths: paths}
}

func (h *tenantEndpoints) Signup(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleSignup,
	})
}

func (h *tenantEndpoints) Tenant(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet:    h.handleGet,
		http.MethodDelete: h.handleClose,
	})
}

func (h *tenantEndpoints) Branding(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPut: h.handleBranding,
	})
}

func (h *tenantEndpoints) Integration(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPut: h.handleIntegration,
	})
}

func (h *tenantEndpoints) handleSignup(w http.ResponseWriter, r *http.Request) error {
	var req dto.SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	result, err := h.service.Signup(r.Context(), tenantservice.SignupParams{
		Name:       req.Name,
		Slug:       req.Slug,
		OwnerEmail: req.Email,
		OwnerName:  req.OwnerName,
	})
	if err != nil {
		return err
	}

	return WriteJSON(w, http.StatusCreated, dto.SignupResponse{
		Tenant:       toTenantResponse(result.Tenant, false),
		MembershipID: result.Membership.MembershipID,
	})
}

func (h *tenantEndpoints) handleGet(w http.ResponseWriter, r *http.Request) error {
	sess, err := sessionFrom(r)
	if err != nil {
		return err
	}

	tenant, err := h.service.Get(r.Context(), sess)
	if err != nil {
		return err
	}
	return WriteJSON(w, http.StatusOK, toTenantResponse(tenant, true))
}

func (h *tenantEndpoints) handleClose(w http.ResponseWriter, r *http.Request) error {
	sess, err := sessionFrom(r)
	if err != nil {
		return err
	}

	if err := h.service.Close(r.Context(), sess); err != nil {
		return err
	}
	return WriteJSON(w, http.StatusOK, dto.SuccessResponse{Success: true})
}

func (h *tenantEndpoints) handleBranding(w http.ResponseWriter, r *http.Request) error {
	sess, err := sessionFrom(r)
	if err != nil {
		return err
	}

	var req dto.UpdateBrandingRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	branding, err := h.service.UpdateBranding(r.Context(), sess, tenantservice.BrandingInput{
		DisplayName:  req.DisplayName,
		PrimaryColor: req.PrimaryColor,
		AccentColor:  req.AccentColor,
		LogoURL:      req.LogoURL,
	})
	if err != nil {
		return err
	}
	return WriteJSON(w, http.StatusOK, toBrandingResponse(branding))
}

func (h *tenantEndpoints) handleIntegration(w http.ResponseWriter, r *http.Request) error {
	sess, err := sessionFrom(r)
	if err != nil {
		return err
	}
	provider, err := requirePathID(r, strings.TrimRight(h.paths.IntegrationsPrefix, "/")+"/", "integration")
	if err != nil {
		return err
	}

	var req dto.UpdateIntegrationRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	status, err := h.service.UpdateIntegration(r.Context(), sess, provider, tenantservice.IntegrationInput{
		AccountID:    req.AccountID,
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
	})
	if err != nil {
		return err
	}
	return WriteJSON(w, http.StatusOK, toIntegrationResponse(status))
}
