package handlers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/jmpark86/condo-billing/backend/models"
)

type UnitHandler struct {
	db *sql.DB
}

func NewUnitHandler(db *sql.DB) *UnitHandler {
	return &UnitHandler{db: db}
}

func (h *UnitHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Query(`
		SELECT id, name, area, created_at, updated_at
		FROM units
		ORDER BY id
	`)
	if err != nil {
		log.Printf("Error listing units: %v", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	units := []models.Unit{}
	for rows.Next() {
		var u models.Unit
		if err := rows.Scan(&u.ID, &u.Name, &u.Area, &u.CreatedAt, &u.UpdatedAt); err != nil {
			log.Printf("Error scanning unit: %v", err)
			continue
		}
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		log.Printf("Error reading units: %v", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(units)
}

func (h *UnitHandler) Get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	var u models.Unit
	err := h.db.QueryRow(`
		SELECT id, name, area, created_at, updated_at
		FROM units WHERE id = ?
	`, id).Scan(&u.ID, &u.Name, &u.Area, &u.CreatedAt, &u.UpdatedAt)

	if err == sql.ErrNoRows {
		http.Error(w, "Unit not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("Error getting unit: %v", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(u)
}

func validateUnit(u *models.Unit) string {
	u.ID = strings.TrimSpace(u.ID)
	u.Name = strings.TrimSpace(u.Name)
	if u.ID == "" {
		return "Unit id is required"
	}
	if u.Name == "" {
		return "Unit name is required"
	}
	if u.Area <= 0 {
		return "Unit area must be positive"
	}
	return ""
}

func (h *UnitHandler) Create(w http.ResponseWriter, r *http.Request) {
	var u models.Unit
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if msg := validateUnit(&u); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	_, err := h.db.Exec(`
		INSERT INTO units (id, name, area) VALUES (?, ?, ?)
	`, u.ID, u.Name, u.Area)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			http.Error(w, "Unit id already exists", http.StatusConflict)
			return
		}
		log.Printf("Error creating unit: %v", err)
		http.Error(w, "Failed to create unit", http.StatusInternalServerError)
		return
	}

	log.Printf("Created unit %s (%s, %.2f m2)", u.ID, u.Name, u.Area)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(u)
}

func (h *UnitHandler) Update(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	var u models.Unit
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	u.ID = id

	if msg := validateUnit(&u); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	result, err := h.db.Exec(`
		UPDATE units SET name = ?, area = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, u.Name, u.Area, id)
	if err != nil {
		log.Printf("Error updating unit: %v", err)
		http.Error(w, "Failed to update unit", http.StatusInternalServerError)
		return
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		http.Error(w, "Unit not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(u)
}

// Delete removes a unit. Readings and bills for the unit go with it
// through the schema's ON DELETE CASCADE.
func (h *UnitHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	result, err := h.db.Exec("DELETE FROM units WHERE id = ?", id)
	if err != nil {
		log.Printf("Error deleting unit %s: %v", id, err)
		http.Error(w, "Failed to delete unit", http.StatusInternalServerError)
		return
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		http.Error(w, "Unit not found", http.StatusNotFound)
		return
	}

	log.Printf("Deleted unit %s and its readings/bills", id)
	w.WriteHeader(http.StatusNoContent)
}
