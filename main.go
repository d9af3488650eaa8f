package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"barrio-connector/internal/config"
	repocontants "barrio-connector/internal/domain/interfaces/repository/contants"
	Iservices "barrio-connector/internal/domain/interfaces/services"
	"barrio-connector/internal/infra/handlers"
	"barrio-connector/internal/infra/logger"
	"barrio-connector/internal/infra/provider"
	"barrio-connector/internal/infra/repository"
	"barrio-connector/internal/infra/routes"
	"barrio-connector/internal/infra/services"
	"barrio-connector/internal/middleware"
	client "barrio-connector/internal/pkg"

	"github.com/gorilla/mux"
)

func main() {
	_ = config.LoadEnv()
	cfg := config.Load()

	ctx := context.Background()
	log := logger.NewLogger(ctx, cfg.LogLevel, cfg.LogFormat != "text")

	if err := cfg.Validate(); err != nil {
		log.Fatal(fmt.Sprintf("Invalid configuration: %v", err))
	}

	mongoClient, err := client.MongoClient(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatal(err.Error())
	}
	defer mongoClient.Disconnect(context.Background())

	db := mongoClient.Database(cfg.MongoDatabase)
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		log.Fatal(fmt.Sprintf("Failed to create indexes: %v", err))
	}

	var locker Iservices.ILocker = services.NewKeyedMutex()
	if cfg.RedisAddr != "" {
		rdb, err := client.RedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatal(err.Error())
		}
		defer rdb.Close()
		locker = services.NewRedisLocker(rdb, cfg.LockTTL, log)
		log.Info("Using Redis conversation lock")
	}

	var publisher Iservices.IEventPublisher = services.NopEventPublisher{}
	if cfg.RabbitURL != "" {
		conn, ch, err := client.RabbitChannel(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			log.Fatal(err.Error())
		}
		defer conn.Close()
		defer ch.Close()
		publisher = services.NewRabbitEventPublisher(ch, cfg.RabbitExchange)
		log.Info(fmt.Sprintf("Publishing commit events to exchange %s", cfg.RabbitExchange))
	}

	chatModel, err := services.NewOpenAICompatibleChatModel(ctx, cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout)
	if err != nil {
		log.Fatal(fmt.Sprintf("Failed to create chat model: %v", err))
	}

	catalog := repository.NewProductCatalog(db)
	customers := repository.NewCounterpartyDirectory(db, repocontants.CUSTOMER_COLLECTION)
	suppliers := repository.NewCounterpartyDirectory(db, repocontants.SUPPLIER_COLLECTION)

	committer := services.NewTransactionCommitter(
		log,
		catalog,
		customers,
		suppliers,
		repository.NewSalesLedger(db),
		repository.NewExpenseLedger(db),
		repository.NewDebtLedger(db),
		publisher,
	)

	engine := services.NewConversationEngine(
		log,
		repository.NewConversationRepository(db),
		services.NewKeywordIntentClassifier(),
		services.NewLLMSlotExtractor(chatModel, log, cfg.LLMTimeout),
		committer,
		locker,
		services.NewSessionPolicy(cfg.ConversationTimeout),
		services.NewInstructionBuilder(catalog, customers, suppliers, log),
	)

	httpClient := &http.Client{Timeout: 15 * time.Second}
	whatsAppProvider := provider.NewInfobipWhatsAppProvider(log, httpClient, cfg.InfobipURL, cfg.InfobipClientID, cfg.InfobipClientSecret, cfg.WhatsAppNumber)

	channelService := services.NewChannelService(log, engine, repository.NewStoreUserRepository(db), whatsAppProvider)

	router := mux.NewRouter()
	router.Use(middleware.LoggingMiddleware(log))

	routes := routes.NewRoutes(
		router,
		handlers.NewInfobipHandlers(log, channelService),
		handlers.NewTwilioHandlers(log, channelService, cfg.TwilioAuthToken, cfg.TwilioReplyTimeout),
		handlers.NewAPIHandlers(log, engine),
		cfg.APIKey,
	)
	routes.Init()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info(fmt.Sprintf("Server is running on port %s", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(fmt.Sprintf("Error running HTTP server: %s", err))
			os.Exit(1)
		}
	}()

	<-stop
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error(fmt.Sprintf("Server forced to shutdown: %v", err))
	} else {
		log.Info("Server stopped gracefully.")
	}
}
