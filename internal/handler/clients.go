package handler

import (
	"net/http"

	"github.com/Dan9191/loan-service/internal/models"
)

type clientRequest struct {
	Name           string `json:"name"`
	Identification string `json:"identification"`
	Address        string `json:"address"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
}

func (req clientRequest) client() *models.Client {
	return &models.Client{
		Name:           req.Name,
		Identification: req.Identification,
		Address:        req.Address,
		Phone:          req.Phone,
		Email:          req.Email,
	}
}

// CreateClient handles POST /clients
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	client := req.client()
	if err := h.svc.CreateClient(r.Context(), client); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, client)
}

// ListClients handles GET /clients
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.svc.ListClients(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, clients)
}

// GetClient handles GET /clients/{id}
func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	client, err := h.svc.GetClient(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

// UpdateClient handles PUT /clients/{id}
func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req clientRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	client := req.client()
	client.ID = id
	if err := h.svc.UpdateClient(r.Context(), client); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

// DeleteClient handles DELETE /clients/{id}; the client's loans and payments go with it
func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.DeleteClient(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListClientLoans handles GET /clients/{id}/loans
func (h *Handler) ListClientLoans(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	loans, err := h.svc.ListClientLoans(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loans)
}
