package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/ukydev/itp-scheduling/internal/models"
)

// CreateStation handles POST /api/stations.
func (h *Handler) CreateStation(w http.ResponseWriter, r *http.Request) {
	var station models.Station
	if !decodeJSON(w, r, &station) {
		return
	}
	created, err := h.svc.CreateStation(r.Context(), station, actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// GetStation handles GET /api/stations/{stationID}.
func (h *Handler) GetStation(w http.ResponseWriter, r *http.Request) {
	station, err := h.svc.GetStation(r.Context(), mux.Vars(r)["stationID"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, station)
}

// CreateClient handles POST /api/clients.
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var client models.Client
	if !decodeJSON(w, r, &client) {
		return
	}
	created, err := h.svc.CreateClient(r.Context(), client, actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// CreateVehicle handles POST /api/vehicles.
func (h *Handler) CreateVehicle(w http.ResponseWriter, r *http.Request) {
	var vehicle models.Vehicle
	if !decodeJSON(w, r, &vehicle) {
		return
	}
	created, err := h.svc.CreateVehicle(r.Context(), vehicle, actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// GetVehicle handles GET /api/vehicles/{vehicleID}.
func (h *Handler) GetVehicle(w http.ResponseWriter, r *http.Request) {
	vehicle, err := h.svc.GetVehicle(r.Context(), mux.Vars(r)["vehicleID"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}

// ListActivity handles GET /api/stations/{stationID}/activity?limit=.
func (h *Handler) ListActivity(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeErrorKind(w, http.StatusBadRequest, "invalid_input", "limit must be an integer")
		return
	}
	entries, err := h.svc.ListActivity(r.Context(), mux.Vars(r)["stationID"], limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []models.ActivityLog{}
	}
	writeJSON(w, http.StatusOK, entries)
}
