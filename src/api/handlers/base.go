package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"server/src/api/controllers"
	"server/src/clients/snaptrade"
	"server/src/config"
	"server/src/database"
	"server/src/repositories"
	"server/src/services"
	"server/src/utils"
	redis_utils "server/src/utils/redis"
)

type Handler struct {
	Controller controllers.IController
}

func NewHandler(cfg *config.Config) (*Handler, error) {
	db, err := database.SetupDB(cfg)
	if err != nil {
		return nil, err
	}

	// Redis is optional; without it holdings are fetched fresh each time.
	var cacheHandler utils.CacheHandlerI
	if cfg.Databases.Redis.Host != "" {
		redisHandler, err := redis_utils.NewRedisHandler(cfg)
		if err == nil {
			cacheHandler = redisHandler
		}
	}

	client := snaptrade.NewClient(cfg)

	connectionRepo := repositories.NewBrokerConnectionRepository(db)
	assetRepo := repositories.NewAssetRepository(db)
	categoryRepo := repositories.NewAssetCategoryRepository(db)
	syncLogRepo := repositories.NewSyncLogRepository(db)

	credentialService := services.NewCredentialService(connectionRepo, client)
	holdingsService := services.NewHoldingsService(credentialService, client, cacheHandler)
	syncService := services.NewSyncService(connectionRepo, assetRepo, categoryRepo, syncLogRepo, credentialService, holdingsService, client)
	reportService := services.NewReportService()

	controller := controllers.NewController(client, credentialService, holdingsService, syncService, reportService, assetRepo, categoryRepo)
	return &Handler{Controller: controller}, nil
}

func (h *Handler) respond(w http.ResponseWriter, _ *http.Request, data interface{}, status int) {
	res, err := json.Marshal(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write(res)
}

func (h *Handler) HandleErrors(w http.ResponseWriter, err error) {
	var httpErr *utils.HTTPError
	if errors.Is(err, context.DeadlineExceeded) {
		h.respond(w, nil, map[string]string{"error": "Request timed out"}, http.StatusGatewayTimeout)
	} else if errors.As(err, &httpErr) {
		h.respond(w, nil, map[string]string{"error": httpErr.Message}, httpErr.Code)
	} else if err != nil {
		h.respond(w, nil, map[string]string{"error": err.Error()}, http.StatusInternalServerError)
	} else {
		h.respond(w, nil, map[string]string{"error": "Unhandled error"}, http.StatusInternalServerError)
	}
}

// noStore suppresses caching on status and credential endpoints.
func noStore(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
}

func Healthcheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
