package main

import (
	"errors"
	"log"
	"net/http"

	"server/src/api"
	"server/src/config"
	aws_handler "server/src/utils/aws"
	"server/src/worker"
)

func main() {
	cfg, err := config.LoadConfig("./settings")
	if err != nil {
		log.Println(err, "Error while loading config")
		return
	}

	if err := loadBrokerCredentials(cfg); err != nil {
		// Missing credentials are not fatal: the broker client stays in
		// its fail-fast "not initialized" state.
		log.Println(err, "Broker credentials unavailable, broker operations disabled")
	}

	errC, err := run(cfg)
	if err != nil {
		log.Println(err, "Couldn't run")
		return
	}

	if err := <-errC; err != nil {
		log.Println(err, "Error while running")
	}
}

// loadBrokerCredentials fills the SnapTrade credential pair from AWS
// Secrets Manager when the env variables were not provided.
func loadBrokerCredentials(cfg *config.Config) error {
	snapTrade := &cfg.ExternalClients.SnapTrade
	if snapTrade.ClientID != "" && snapTrade.ConsumerKey != "" {
		return nil
	}
	if snapTrade.SecretID == "" {
		return errors.New("no SnapTrade credentials configured")
	}

	awsHandler, err := aws_handler.NewAWSHandler(cfg.AWS.Region)
	if err != nil {
		return err
	}
	var creds struct {
		ClientID    string `json:"clientId"`
		ConsumerKey string `json:"consumerKey"`
	}
	if err := awsHandler.SecretManager.GetSecretJSON(snapTrade.SecretID, &creds); err != nil {
		return err
	}
	snapTrade.ClientID = creds.ClientID
	snapTrade.ConsumerKey = creds.ConsumerKey
	return nil
}

func run(cfg *config.Config) (<-chan error, error) {
	errC := make(chan error, 1)

	port := cfg.Service.Port
	if port == "" {
		port = "8000"
	}

	var httpServer *http.Server
	if cfg.Service.Type == config.WORKER {
		server, err := worker.NewServer(cfg)
		if err != nil {
			return nil, err
		}
		httpServer = worker.NewHTTPServer(server, port)
	} else {
		server, err := api.NewServer(cfg)
		if err != nil {
			return nil, err
		}
		httpServer = api.NewHTTPServer(server, port)
	}

	go func() {
		log.Println("Starting server on port", port)

		// "ListenAndServe always returns a non-nil error. After Shutdown or
		// Close, the returned error is ErrServerClosed."
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errC <- err
		}
	}()
	return errC, nil
}
