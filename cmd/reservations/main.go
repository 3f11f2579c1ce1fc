package main

import (
	"roomly/internal/reservations/handler"
	"roomly/internal/reservations/repository"
	"roomly/internal/reservations/service"
	"roomly/internal/reservations/validator"
	"roomly/pkg/app"
	"roomly/pkg/cache"
	"roomly/pkg/config"
	"roomly/pkg/kafka"
)

const ServiceName = "reservations"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting Reservations service", "admission_strategy", cfg.AdmissionStrategy)

	reservationService, roomService := initServices(cfg)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		handler.NewReservationHandler(reservationService, cfg.Log),
		handler.NewRoomHandler(roomService, cfg.Log),
	)
	serverApp.Run()
}

func initServices(cfg *config.Config) (service.ReservationService, service.RoomService) {
	reservationRepo := repository.NewMongoReservationRepository(cfg)
	roomRepo := repository.NewMongoRoomRepository(cfg)
	lockRepo := repository.NewAdmissionLockRepository(cfg)

	strategy := service.NewAdmissionStrategy(cfg, reservationRepo, lockRepo)

	readModelCache := cache.NewMemory(cfg.CacheTTL, cfg.CacheCleanupInterval)
	invalidator := service.NewCacheInvalidator(readModelCache, cfg.Log)

	var publisher service.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			cfg.Log.Fatal("Failed to initialize Kafka producer", "error", err)
		}
		publisher = producer
		cfg.Log.Info("Kafka producer initialized", "topic", cfg.KafkaTopic)
	} else {
		cfg.Log.Info("Kafka brokers not configured, event publishing disabled")
	}

	reservationValidator := validator.NewReservationValidator(cfg.Log)
	reservationService := service.NewReservationService(
		reservationRepo,
		roomRepo,
		strategy,
		reservationValidator,
		invalidator,
		publisher,
		cfg,
	)
	roomService := service.NewRoomService(roomRepo, readModelCache, cfg)

	cfg.Log.Info("Reservation service initialized", "database", cfg.MongoDatabaseName)
	return reservationService, roomService
}
