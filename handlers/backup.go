package handlers

import (
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/jmpark86/condo-billing/backend/database"
	"github.com/jmpark86/condo-billing/backend/services"
)

// 64 MB is far beyond any realistic store for one building.
const maxBackupSize = 64 << 20

type BackupHandler struct {
	db             *sql.DB
	billingService *services.BillingService
}

func NewBackupHandler(db *sql.DB, billingService *services.BillingService) *BackupHandler {
	return &BackupHandler{db: db, billingService: billingService}
}

// Download streams a consistent snapshot of the store as a raw SQLite
// file for the operator to keep.
func (h *BackupHandler) Download(w http.ResponseWriter, r *http.Request) {
	data, err := database.Export(h.db)
	if err != nil {
		log.Printf("ERROR: Backup export failed: %v", err)
		http.Error(w, "Failed to export backup", http.StatusInternalServerError)
		return
	}

	backupName := fmt.Sprintf("condo-billing-backup-%s.db", time.Now().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", backupName))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))
	w.Write(data)

	log.Printf("Backup downloaded: %s (%d bytes)", backupName, len(data))
}

// Upload restores the store from an uploaded backup file. The current
// data survives untouched when the upload fails validation.
func (h *BackupHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxBackupSize); err != nil {
		http.Error(w, "Invalid upload", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing backup file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBackupSize))
	if err != nil {
		http.Error(w, "Failed to read upload", http.StatusBadRequest)
		return
	}

	if err := database.Import(h.db, data); err != nil {
		log.Printf("ERROR: Backup import failed: %v", err)
		http.Error(w, fmt.Sprintf("Restore failed: %v", err), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "restored"})
}

type blobPayload struct {
	Data string `json:"data"`
}

// DownloadBlob wraps the backup bytes in base64 so the frontend can keep
// them in text-only storage.
func (h *BackupHandler) DownloadBlob(w http.ResponseWriter, r *http.Request) {
	data, err := database.Export(h.db)
	if err != nil {
		log.Printf("ERROR: Backup export failed: %v", err)
		http.Error(w, "Failed to export backup", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(blobPayload{Data: base64.StdEncoding.EncodeToString(data)})
}

func (h *BackupHandler) UploadBlob(w http.ResponseWriter, r *http.Request) {
	var payload blobPayload
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBackupSize)).Decode(&payload); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	data, err := base64.StdEncoding.DecodeString(payload.Data)
	if err != nil {
		http.Error(w, "Invalid base64 data", http.StatusBadRequest)
		return
	}

	if err := database.Import(h.db, data); err != nil {
		log.Printf("ERROR: Backup import failed: %v", err)
		http.Error(w, fmt.Sprintf("Restore failed: %v", err), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "restored"})
}

func (h *BackupHandler) ClearData(w http.ResponseWriter, r *http.Request) {
	if err := database.ClearAllData(h.db); err != nil {
		log.Printf("ERROR: Data clear failed: %v", err)
		http.Error(w, "Failed to clear data", http.StatusInternalServerError)
		return
	}

	log.Println("All data cleared by operator request")
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "cleared"})
}

func (h *BackupHandler) LoadSampleData(w http.ResponseWriter, r *http.Request) {
	if err := services.LoadSampleData(h.db, h.billingService); err != nil {
		log.Printf("ERROR: Sample data load failed: %v", err)
		http.Error(w, "Failed to load sample data", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "loaded"})
}
