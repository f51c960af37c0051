package main

import (
	"bookingguard/internal/bookings/events"
	"bookingguard/internal/bookings/gateway"
	"bookingguard/internal/bookings/handler"
	"bookingguard/internal/bookings/repository"
	"bookingguard/internal/bookings/service"
	"bookingguard/internal/bookings/validator"
	"bookingguard/pkg/app"
	"bookingguard/pkg/config"
	"bookingguard/pkg/kafka"
	kafka_config "bookingguard/pkg/kafka/config"
	kafka_middleware "bookingguard/pkg/kafka/middleware"
	"bookingguard/pkg/metrics"
)

const ServiceName = "bookingguard"

func main() {
	cfg := config.Load(ServiceName)

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}

	cfg.LogConfiguration()
	cfg.SetMongo()

	cfg.Log.Info("Starting booking guard service")
	m := metrics.New()
	bookingService := initServices(cfg, m)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		handler.NewHealthHandler(cfg.Client.Mongo, m.Handler(), cfg.Log),
		handler.NewBookingHandler(bookingService, cfg.Log),
	)

	if cfg.KafkaEnabled {
		initEventPipeline(cfg, m, bookingService, serverApp)
	}

	serverApp.Run()
}

func initServices(cfg *config.Config, m *metrics.Metrics) service.BookingService {
	bookingValidator := validator.NewBookingValidator(cfg.Log)
	bookingRepo := repository.NewMongoBookingRepository(cfg)
	bookingGateway := gateway.New(bookingRepo, cfg.Log, m)
	bookingService := service.NewBookingService(
		bookingRepo,
		bookingGateway,
		bookingValidator,
		m,
		cfg,
	)

	cfg.Log.Info("Booking service initialized", "database", cfg.MongoDatabaseName)
	return bookingService
}

func initEventPipeline(cfg *config.Config, m *metrics.Metrics, svc service.BookingService, serverApp *app.Application) {
	kafkaCfg := kafka_config.Load()
	if err := kafkaCfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.BookingVerdictsTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create verdict producer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		producer.Use(kafka_middleware.MetricsProducerMiddleware(m))
	}

	pipeline := events.NewPipeline(cfg.Log, events.BookingRegistrations(svc)...)
	consumerHandler := events.NewConsumerHandler(pipeline, events.NewVerdictPublisher(producer), cfg.Log)

	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		cfg.BookingEventsTopic,
		cfg.BookingEventsGroup,
		cfg.BookingEventsDLQ,
		consumerHandler.Handle,
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create booking event consumer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
		consumer.Use(kafka_middleware.MetricsConsumerMiddleware(m))
	}

	serverApp.AddWorker(consumer)
	serverApp.AddCloser(producer)

	cfg.Log.Info("Booking event pipeline initialized",
		"events_topic", cfg.BookingEventsTopic,
		"verdicts_topic", cfg.BookingVerdictsTopic,
		"group_id", cfg.BookingEventsGroup,
	)
}
