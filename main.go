package main

import (
	"encoding/json"
	"log"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/jmpark86/condo-billing/backend/config"
	"github.com/jmpark86/condo-billing/backend/database"
	"github.com/jmpark86/condo-billing/backend/handlers"
	"github.com/jmpark86/condo-billing/backend/services"
)

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("PANIC RECOVERED: %v", err)
				log.Printf("Stack trace: %s", debug.Stack())

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "Internal server error",
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s - completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

func main() {
	log.Println("Starting Condo Billing System...")
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := config.Load()

	db, err := database.InitDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	billingService := services.NewBillingService(db)
	renderer := services.NewStatementRenderer(
		services.OfficeInfo{Name: cfg.OfficeName, Phone: cfg.OfficePhone},
		services.BankingInfo{Name: cfg.BankName, Account: cfg.BankAccount, AccountHolder: cfg.BankHolder},
	)

	unitHandler := handlers.NewUnitHandler(db)
	readingHandler := handlers.NewReadingHandler(db, billingService)
	billingHandler := handlers.NewBillingHandler(db, billingService, renderer, cfg.Currency)
	backupHandler := handlers.NewBackupHandler(db, billingService)
	dashboardHandler := handlers.NewDashboardHandler(db)

	r := mux.NewRouter()

	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", healthCheck).Methods("GET")

	api.HandleFunc("/units", unitHandler.List).Methods("GET")
	api.HandleFunc("/units", unitHandler.Create).Methods("POST")
	api.HandleFunc("/units/{id}", unitHandler.Get).Methods("GET")
	api.HandleFunc("/units/{id}", unitHandler.Update).Methods("PUT")
	api.HandleFunc("/units/{id}", unitHandler.Delete).Methods("DELETE")

	api.HandleFunc("/readings", readingHandler.List).Methods("GET")
	api.HandleFunc("/readings", readingHandler.Save).Methods("POST")
	api.HandleFunc("/readings/usage", readingHandler.Usage).Methods("GET")
	api.HandleFunc("/readings/{unitID}/{year}/{month}", readingHandler.Delete).Methods("DELETE")

	api.HandleFunc("/billing/monthly", billingHandler.GetMonthly).Methods("GET")
	api.HandleFunc("/billing/calculate", billingHandler.Calculate).Methods("POST")
	api.HandleFunc("/billing/statements", billingHandler.ListStatements).Methods("GET")
	api.HandleFunc("/billing/statements/{unitID}/pdf", billingHandler.StatementPDF).Methods("GET")
	api.HandleFunc("/billing/export/xlsx", billingHandler.ExportXLSX).Methods("GET")

	api.HandleFunc("/backup", backupHandler.Download).Methods("GET")
	api.HandleFunc("/backup", backupHandler.Upload).Methods("POST")
	api.HandleFunc("/backup/blob", backupHandler.DownloadBlob).Methods("GET")
	api.HandleFunc("/backup/blob", backupHandler.UploadBlob).Methods("POST")

	api.HandleFunc("/data/sample", backupHandler.LoadSampleData).Methods("POST")
	api.HandleFunc("/data/clear", backupHandler.ClearData).Methods("POST")

	api.HandleFunc("/dashboard/summary", dashboardHandler.GetSummary).Methods("GET")

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:4173", "*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		Debug:            false,
	})

	handler := c.Handler(r)

	server := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  180 * time.Second,
	}

	log.Printf("Server starting on %s", cfg.ServerAddress)

	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}
