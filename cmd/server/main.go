package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/fintrack/backend/docs"
	"github.com/fintrack/backend/internal/config"
	"github.com/fintrack/backend/internal/database"
	"github.com/fintrack/backend/internal/handlers"
	mW "github.com/fintrack/backend/internal/middleware"
	"github.com/fintrack/backend/internal/services"
)

// @title FinTrack Backend API
// @version 1.0
// @description API for personal finance tracking with debt reconciliation
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	// Initialize config
	viper.SetConfigFile(".env") // explicitly point to .env file
	viper.AutomaticEnv()        // allow environment variables to override .env
	viper.ReadInConfig()        // read .env file

	viper.SetEnvPrefix("")

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")
	viper.BindEnv("redis.pool_size", "REDIS_POOL_SIZE")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")
	viper.BindEnv("argon2.time", "ARGON2_TIME")
	viper.BindEnv("argon2.memory", "ARGON2_MEMORY")
	viper.BindEnv("argon2.threads", "ARGON2_THREADS")
	viper.BindEnv("argon2.key_length", "ARGON2_KEY_LENGTH")
	viper.BindEnv("argon2.salt_length", "ARGON2_SALT_LENGTH")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	// Initialize Swagger docs
	docs.SwaggerInfo.Title = "FinTrack Backend API"
	docs.SwaggerInfo.Description = "API for personal finance tracking with debt reconciliation"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	// Initialize services
	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	qrConfig := config.LoadQRConfig()

	reconciler := services.NewPaymentReconciler(db)
	debtService := services.NewDebtService(db, reconciler)
	transactionService := services.NewTransactionService(db, redisClient)
	accountService := services.NewAccountService(db)
	budgetService := services.NewBudgetService(db)
	institutionService := services.NewInstitutionService(db)
	authService := services.NewAuthService(db, redisClient)
	qrService := services.NewQRService(db, redisClient, qrConfig)
	qrHandler := handlers.NewQRHandler(qrService)

	if err := institutionService.SeedInstitutions(); err != nil {
		log.Printf("Warning: Failed to seed financial institutions: %v", err)
	}

	// Initialize auth middleware with Redis
	mW.InitAuthMiddleware(redisClient)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Access-Control-Allow-Origin"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	// Static file server for institution logos
	r.Handle("/static/fi-logos/*", http.StripPrefix("/static/fi-logos/",
		mW.StaticFileServer("./static/fi-logos")))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints (no auth required)
		r.Post("/auth/register", authService.Register)
		r.Post("/auth/login", authService.Login)
		r.Post("/auth/logout", authService.Logout)
		r.Get("/fis", institutionService.GetAllInstitutions)
		r.Get("/transactions/types", transactionService.GetTransactionTypes)

		// Protected endpoints (auth required)
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			r.Get("/auth/account", authService.GetUserAccount)
			r.Patch("/auth/account", authService.UpdateProfile)

			// Debts
			r.Post("/debts", debtService.CreateDebt)
			r.Get("/debts", debtService.ListDebts)
			r.Get("/debts/{debtId}", debtService.GetDebt)
			r.Patch("/debts/{debtId}", debtService.UpdateDebt)
			r.Delete("/debts/{debtId}", debtService.DeleteDebt)
			r.Put("/debts/{debtId}/payment", debtService.ApplyPayment)
			r.Get("/debts/{debtId}/payments", debtService.ListPayments)

			// Transactions
			r.Post("/transactions", transactionService.CreateTransaction)
			r.Get("/transactions", transactionService.ListTransactions)
			r.Get("/transactions/summary/monthly", transactionService.MonthlySummary)
			r.Get("/transactions/summary/expenses", transactionService.ExpensesByType)
			r.Get("/transactions/{transactionId}", transactionService.GetTransaction)
			r.Patch("/transactions/{transactionId}", transactionService.UpdateTransaction)
			r.Delete("/transactions/{transactionId}", transactionService.DeleteTransaction)

			// Bank accounts
			r.Post("/banks", accountService.CreateAccount)
			r.Get("/banks", accountService.ListAccounts)
			r.Get("/banks/{accountNumber}/{fiCode}", accountService.GetAccount)
			r.Patch("/banks/{accountNumber}/{fiCode}", accountService.UpdateAccount)
			r.Delete("/banks/{accountNumber}/{fiCode}", accountService.DeleteAccount)

			// Budgets
			r.Post("/budgets", budgetService.CreateBudget)
			r.Get("/budgets", budgetService.ListBudgets)
			r.Patch("/budgets/{expenseType}/{month}", budgetService.UpdateBudget)
			r.Delete("/budgets/{expenseType}/{month}", budgetService.DeleteBudget)

			// Payment request QR codes
			r.Post("/payment-requests", qrHandler.GeneratePaymentRequest)
			r.Post("/payment-requests/resolve", qrHandler.ResolvePaymentRequest)
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
