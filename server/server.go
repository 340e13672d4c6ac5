package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"melodygram/cache"
	"melodygram/config"
	"melodygram/core/audio"
	"melodygram/core/auth"
	"melodygram/core/credit"
	"melodygram/core/pipeline"
	"melodygram/core/provider"
	"melodygram/core/share"
	"melodygram/db"
	"melodygram/logger"
	"melodygram/model"
	"melodygram/repository"
	"melodygram/storage"
)

// minioUploader adapts the storage package to the pipeline's uploader surface.
type minioUploader struct{}

func (minioUploader) UploadClip(ctx context.Context, localPath, objectName string) (string, error) {
	return storage.UploadClip(ctx, localPath, objectName)
}

// Start initializes dependencies and runs the HTTP server until interrupted.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.InfoLevel,
		OutputPath: "logs/melodygram.log",
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	})

	auth.SetJWTSecret(cfg.JWTSecret)

	if err := storage.InitMinio(cfg); err != nil {
		logger.Fatal("Failed to initialize MinIO", logger.ErrorField(err))
	}

	if err := db.ConnectDB(cfg); err != nil {
		logger.Fatal("Failed to connect to database", logger.ErrorField(err))
	}
	defer db.DB.Close()

	if err := db.InitDB(); err != nil {
		logger.Fatal("Failed to initialize database schema", logger.ErrorField(err))
	}

	if err := db.ConnectGormDB(cfg); err != nil {
		logger.Fatal("Failed to connect GORM", logger.ErrorField(err))
	}
	defer db.CloseGormDB()

	if err := db.MigrateGorm(); err != nil {
		logger.Fatal("Failed to run migrations", logger.ErrorField(err))
	}

	if err := cache.ConnectRedis(cfg); err != nil {
		logger.Fatal("Failed to connect to Redis", logger.ErrorField(err))
	}
	defer cache.CloseRedis()

	ensureDirExists(cfg.ClipWorkDir)

	userRepo := repository.NewMySQLUserRepository(db.DB)
	creditRepo := repository.NewMySQLCreditRepository(db.DB)
	songRepo := repository.NewGormSongRepository(db.GormDB)

	ledger := credit.NewLedger(creditRepo, cfg.StarterCredits, cfg.CreditRate)
	sessions := cache.NewSessionStore(cache.RedisClient, cfg.SessionTTL)
	shares := share.NewStore()

	lyricsClient := provider.NewLyricsClient(cfg.LLMAPIBaseURL, cfg.LLMAPIKey, cfg.LLMModel)
	titleClient := provider.NewTitleClient(cfg.LLMAPIBaseURL, cfg.LLMAPIKey, cfg.LLMModel)
	visionClient := provider.NewVisionClient(cfg.LLMAPIBaseURL, cfg.LLMAPIKey, cfg.VisionModel)
	songClient := provider.NewSongClient(cfg.SongAPIBaseURL, cfg.SongAPIKey)
	avatarClient := provider.NewAvatarClient(cfg.AvatarAPIBaseURL, cfg.AvatarAPIKey)

	clipper := audio.NewFFmpegClipper(cfg.FFmpegPath, cfg.ClipWorkDir)

	progress := NewProgressHub()

	pipe := pipeline.New(clipper, minioUploader{}, avatarClient, visionClient, songRepo, sessions, pipeline.Options{
		CostCeiling:  cfg.CostCeiling,
		CreditRate:   cfg.CreditRate,
		PollInterval: cfg.AvatarPollInterval,
	})
	pipe.SetProgressFunc(func(songID string, p int) {
		progress.Publish(songID, p, model.SongStatusGenerating, "")
	})

	apiHandler := NewAPIHandler(userRepo, songRepo, ledger, sessions, shares,
		lyricsClient, titleClient, songClient, clipper, pipe, progress, cfg)

	router := mux.NewRouter()

	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Range")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// Auth
	router.HandleFunc("/api/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/register", apiHandler.RegisterHandler).Methods(http.MethodPost)

	// User profile
	router.HandleFunc("/api/user/me", apiHandler.AuthMiddleware(apiHandler.GetCurrentUserHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/user/preferences", apiHandler.AuthMiddleware(apiHandler.UpdatePreferencesHandler)).Methods(http.MethodPut)

	// Song library
	router.HandleFunc("/api/songs", apiHandler.AuthMiddleware(apiHandler.GetSongsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/songs/{id}", apiHandler.AuthMiddleware(apiHandler.GetSongHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/songs/{id}", apiHandler.AuthMiddleware(apiHandler.DeleteSongHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/songs/{id}/play", apiHandler.AuthMiddleware(apiHandler.PlaySongHandler)).Methods(http.MethodPost)

	// Creation session
	router.HandleFunc("/api/session", apiHandler.AuthMiddleware(apiHandler.GetSessionHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/session", apiHandler.AuthMiddleware(apiHandler.PutSessionHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/session", apiHandler.AuthMiddleware(apiHandler.ClearSessionHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/session/selection", apiHandler.AuthMiddleware(apiHandler.SetAudioSelectionHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/session/history", apiHandler.AuthMiddleware(apiHandler.HistoryNavHandler)).Methods(http.MethodPost)

	// Generation
	router.HandleFunc("/api/generate/lyrics", apiHandler.AuthMiddleware(apiHandler.GenerateLyricsHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/generate/title", apiHandler.AuthMiddleware(apiHandler.GenerateTitleHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/generate/song", apiHandler.AuthMiddleware(apiHandler.GenerateSongHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/generate/avatar", apiHandler.AuthMiddleware(apiHandler.GenerateAvatarHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/generate/{id}/status", apiHandler.AuthMiddleware(apiHandler.GenerationStatusHandler)).Methods(http.MethodGet)

	// Credits
	router.HandleFunc("/api/credits", apiHandler.AuthMiddleware(apiHandler.GetCreditsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/credits/quote", apiHandler.AuthMiddleware(apiHandler.QuotePriceHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/credits/purchase", apiHandler.AuthMiddleware(apiHandler.PurchaseCreditsHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/credits/subscribe", apiHandler.AuthMiddleware(apiHandler.SubscribeCreditsHandler)).Methods(http.MethodPost)

	// Shares. GET is public so links work without an account.
	router.HandleFunc("/api/share", apiHandler.AuthMiddleware(apiHandler.CreateShareHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/share", apiHandler.GetShareHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/share", apiHandler.AuthMiddleware(apiHandler.DeleteShareHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/share/{id}", apiHandler.GetShareHandler).Methods(http.MethodGet)

	// WebSockets
	router.HandleFunc("/ws/progress/{id}", apiHandler.WebSocketProgressHandler).Methods(http.MethodGet)
	router.HandleFunc("/ws/preview", apiHandler.WebSocketPreviewHandler).Methods(http.MethodGet)

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Server starting", logger.String("addr", cfg.ServerAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}

	logger.Info("Server stopped")
}

func ensureDirExists(path string) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0755); err != nil {
			logger.Fatal("Failed to create directory", logger.String("path", path), logger.ErrorField(err))
		}
	} else if err != nil {
		logger.Fatal("Failed to check directory", logger.String("path", path), logger.ErrorField(err))
	}
}
