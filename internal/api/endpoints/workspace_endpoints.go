package endpoints

import (
	"net/http"
	"strings"

	"studio-backend/internal/dto"
	"studio-backend/internal/service/workspace"
)

// WorkspacePaths are the collection paths; item routes live under path+"/".
type WorkspacePaths struct {
	Clients  string
	Agents   string
	Bookings string
	Team     string
}

type WorkspaceEndpoints interface {
	Clients(http.ResponseWriter, *http.Request) error
	Client(http.ResponseWriter, *http.Request) error
	Agents(http.ResponseWriter, *http.Request) error
	Bookings(http.ResponseWriter, *http.Request) error
	Booking(http.ResponseWriter, *http.Request) error
	Team(http.ResponseWriter, *http.Request) error
	Member(http.ResponseWriter, *http.Request) error
}

type workspaceEndpoints struct {
	service *workspace.Service
	paths   WorkspacePaths
}

func NewWorkspaceEndpoints(service *workspace.Service, paths WorkspacePaths) WorkspaceEndpoints {
	return &workspaceEndpoints{service: service, paths: paths}
}

func itemPrefix(collection string) string {
	return strings.TrimRight(collection, "/") + "/"
}

func (h *workspaceEndpoints) Clients(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet:  h.handleListClients,
		http.MethodPost: h.handleCreateClient,
	})
}

func (h *workspaceEndpoints) Client(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet:    h.handleGetClient,
		http.MethodPatch:  h.handleUpdateClient,
		http.MethodDelete: h.handleDeleteClient,
	})
}

func (h *workspaceEndpoints) Agents(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet:  h.handleListAgents,
		http.MethodPost: h.handleCreateAgent,
	})
}

func (h *workspaceEndpoints) Bookings(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet:  h.handleListBookings,
		http.MethodPost: h.handleCreateBooking,
	})
}

func (h *workspaceEndpoints) Booking(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodDelete: h.handleDeleteBooking,
	})
}

func (h *workspaceEndpoints) Team(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet:  h.handleListTeam,
		http.MethodPost: h.handleInvite,
	})
}

func (h *workspaceEndpoints) Member(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPatch:  h.handleUpdateMember,
		http.MethodDelete: h.handleRemoveMember,
	})
}

func clientInput(req dto.ClientRequest) workspace.ClientInput {
	return workspace.ClientInput{
		TenantID: req.TenantID,
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Company:  req.Company,
		AgentID:  req.AgentID,
		Notes:    req.Notes,
	}
}

func (h *workspaceEndpoints) handleListClients(w http.ResponseWriter, r *http.Request) error {
	sess, err := sessionFrom(r)
	if err != nil {
		return err
	}

	clients, err := h.service.ListClients(r.Context(), sess)
	if err != nil {
		return err
	}

	resp := dto.ClientListResponse{Clients: make([]dto.ClientResponse, 0, len(clients))}
	for _, c := range clients {
		resp.Clients = append(resp.Clients, toClientResponse(c))
	}
	return WriteJSON(w, http.StatusOK, resp)
}

func (h *workspaceEndpoints) handleCreateClient(w http.ResponseWriter, r *http.Request) error {
	sess, err := sessionFrom(r)
	if err != nil {
		return err
	}

	var req dto.ClientRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	client, err := h.service.CreateClient(r.Context(), sess, clientInput(req))
	if err != nil {
		return err
	}
	return WriteJSON(w, http.StatusCreated, toClientResponse(*client))
}

func (h *workspaceEndpoints) handleGetClient(w http.ResponseWriter, r *http.Request) error {
	sess, err := sessionFrom(r)
	if err != nil {
		return err
	}
	clientID, err := requirePathID(r, itemPrefix(h.paths.Clients), "client")
	if err != nil {
		return err
	}

	client, err := h.service.GetClient(r.Context(), sess, clientID)
	if err != nil {
		return err
	}
	return WriteJSON(w, http.StatusOK, toClientResponse(*client))
}

func (h *workspaceEndpoints) handleUpdateClient(w http.ResponseWriter, r *http.Request) error {
	sess, err := sessionFrom(r)
	if err != nil {
		return err
	}
	clientID, err := requirePathID(r, itemPrefix(h.paths.Clients), "client")
	if err != nil {
		return err
	}

	var req dto.ClientRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	client, err := h.service.UpdateClient(r.Context(), sess, clientID, clientInput(req))
	if err != nil {
		return err
	}
	return WriteJSON(w, http.StatusOK, toClientResponse(*client))
}

func (h *workspaceEndpoints) handleDeleteClient(w http.ResponseWriter, r *http.Request) error {
	sess, err := sessionFrom(r)
	if err != nil {
		return err
	}
	clientID, err := requirePathID(r, itemPrefix(h.paths.Clients), "client")
	if err != nil {
		return err
	}

	if err := h.service.DeleteClient(r.Context(), sess, clientID); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *workspaceEndpoints) handleListAgents(w http.ResponseWriter, r *http.Request) error {
	sess, err := sessionFrom(r)
	if err != nil {
		return err
	}

	agents, err := h.service.ListAgents(r.Context(), sess)
	if err != nil {
		return err
	}

	resp := dto.AgentListResponse{Agents: make([]dto.AgentResponse, 0, len(agents))}
	for _, a := range agents {
		resp.Agents = append(resp.Agents, toAgentResponse(a))
	}
	return WriteJSON(w, http.StatusOK, resp)
}

func (h *workspaceEndpoints) handleCreateAgent(w http.ResponseWriter, r *http.Request) error {
	sess, err := sessionFrom(r)
	if err != nil {
		return err
	}

	var req dto.AgentRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	agent, err := h.service.CreateAgent(r.Context(), sess, workspace.AgentInput{
		TenantID:  req.TenantID,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Brokerage: req.Brokerage,
	})
	if err != nil {
		return err
	}
	return WriteJSON(w, http.StatusCreated, toAgentResponse(*agent))
}

func (h *workspaceEndpoints) handleListBookings(w http.ResponseWriter, r *http.Request) error {
	sess, err := sessionFrom(r)
	if err != nil {
		return err
	}

	bookings, err := h.service.ListBookings(r.Context(), sess)
	if err != nil {
		return err
	}

	resp := dto.BookingListResponse{Bookings: make([]dto.BookingResponse, 0, len(bookings))}
	for _, b := range bookings {
		resp.Bookings = append(resp.Bookings, toBookingResponse(b))
	}
	return WriteJSON(w, http.StatusOK, resp)
}

func (h *workspaceEndpoints) handleCreateBooking(w http.ResponseWriter, r *http.Request) error {
	sess, err := sessionFrom(r)
	if err != nil {
		return err
	}

	var req dto.BookingRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	booking, err := h.service.CreateBooking(r.Context(), sess, workspace.BookingInput{
		TenantID: req.TenantID,
		ClientID: req.ClientID,
		Address:  req.Address,
		Services: req.Services,
		StartsAt: req.StartsAt,
		EndsAt:   req.EndsAt,
		Notes:    req.Notes,
	})
	if err != nil {
		return err
	}
	return WriteJSON(w, http.StatusCreated, toBookingResponse(*booking))
}

func (h *workspaceEndpoints) handleDeleteBooking(w http.ResponseWriter, r *http.Request) error {
	sess, err := sessionFrom(r)
	if err != nil {
		return err
	}
	bookingID, err := requirePathID(r, itemPrefix(h.paths.Bookings), "booking")
	if err != nil {
		return err
	}

	if err := h.service.DeleteBooking(r.Context(), sess, bookingID); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *workspaceEndpoints) handleListTeam(w http.ResponseWriter, r *http.Request) error {
	sess, err := sessionFrom(r)
	if err != nil {
		return err
	}

	members, err := h.service.ListTeam(r.Context(), sess)
	if err != nil {
		return err
	}

	resp := dto.TeamResponse{Members: make([]dto.MemberResponse, 0, len(members))}
	for _, m := range members {
		resp.Members = append(resp.Members, toMemberResponse(m))
	}
	return WriteJSON(w, http.StatusOK, resp)
}

func (h *workspaceEndpoints) handleInvite(w http.ResponseWriter, r *http.Request) error {
	sess, err := sessionFrom(r)
	if err != nil {
		return err
	}

	var req dto.InviteRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	member, err := h.service.Invite(r.Context(), sess, workspace.InviteParams{
		TenantID:    req.TenantID,
		Email:       req.Email,
		Name:        req.Name,
		Role:        req.Role,
		Permissions: req.Permissions,
		ClientID:    req.ClientID,
		AgentID:     req.AgentID,
	})
	if err != nil {
		return err
	}
	return WriteJSON(w, http.StatusCreated, toMemberResponse(*member))
}

func (h *workspaceEndpoints) handleUpdateMember(w http.ResponseWriter, r *http.Request) error {
	sess, err := sessionFrom(r)
	if err != nil {
		return err
	}
	membershipID, err := requirePathID(r, itemPrefix(h.paths.Team), "membership")
	if err != nil {
		return err
	}

	var req dto.UpdateMemberRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	member, err := h.service.UpdateMember(r.Context(), sess, membershipID, workspace.MemberUpdate{
		TenantID:    req.TenantID,
		Role:        req.Role,
		Status:      req.Status,
		Permissions: req.Permissions,
		ClientID:    req.ClientID,
		AgentID:     req.AgentID,
	})
	if err != nil {
		return err
	}
	return WriteJSON(w, http.StatusOK, toMemberResponse(*member))
}

func (h *workspaceEndpoints) handleRemoveMember(w http.ResponseWriter, r *http.Request) error {
	sess, err := sessionFrom(r)
	if err != nil {
		return err
	}
	membershipID, err := requirePathID(r, itemPrefix(h.paths.Team), "membership")
	if err != nil {
		return err
	}

	if err := h.service.RemoveMember(r.Context(), sess, membershipID); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
