package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"airfilter_hub/internal/handlers"
	"airfilter_hub/internal/logger"
	"airfilter_hub/internal/models"
	"airfilter_hub/internal/mqtt"
	"airfilter_hub/internal/repository"
	"airfilter_hub/internal/repository/db"
	"airfilter_hub/internal/server"
	"airfilter_hub/internal/service"

	"github.com/spf13/viper"
)

// Loop periods. Engine and reconciler run often; the baseline estimator is a
// slow background job.
const (
	defaultEngineTick     = 30 * time.Second
	defaultReconcilerTick = 5 * time.Second
	defaultRelayTick      = 5 * time.Second
	defaultBaselineTick   = 30 * time.Minute
	defaultSimulatorTick  = time.Minute
)

// @title           Air Filtration Hub API
// @version         1.0
// @description     Household air-quality filtration controller: sensor ingest, hysteresis decisions, manual overrides and the relay command channel.

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// load config.yml first so the log level is configurable
	if err := loadConfig(); err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}

	log := logger.Get(viper.GetString("log.level"))

	// open DB
	sqlDB, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Fatalw("failed to close sqlite", "err", cerr)
		}
	}()

	// connect to the sensor/relay bus
	bus, err := mqtt.NewRealClient(mqtt.Options{
		Broker:     viper.GetString("mqtt.broker"),
		ClientID:   viper.GetString("mqtt.client_id"),
		Username:   viper.GetString("mqtt.username"),
		Password:   viper.GetString("mqtt.password"),
		RelayTopic: viper.GetString("mqtt.relay_topic"),
	})
	if err != nil {
		log.Fatalw("failed to connect to mqtt broker", "err", err)
	}
	defer func() { _ = bus.Close() }()

	// wire dependencies
	cfg, err := controlConfig()
	if err != nil {
		log.Fatalw("invalid control config", "err", err)
	}
	repos := repository.NewRepository(sqlDB)
	services := service.NewService(repos, bus, cfg, log)
	apiHandler := handlers.NewHandler(services, log)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// sensor ingest: bus messages become reading rows
	if err := subscribeSensors(ctx, bus, services, cfg); err != nil {
		log.Fatalw("failed to subscribe to sensor topics", "err", err)
	}

	// control loops
	go services.Estimator.Run(ctx, tick("ticks.baseline", defaultBaselineTick))
	go services.Engine.Run(ctx, tick("ticks.engine", defaultEngineTick))
	go services.Reconciler.Run(ctx, tick("ticks.reconciler", defaultReconcilerTick))
	go services.Relay.Run(ctx, tick("ticks.relay", defaultRelayTick))

	// synthetic sensor feed for bench runs without hardware
	if viper.GetBool("simulator.enabled") {
		log.Infow("sensor simulator enabled")
		sim := service.NewSimulatorService(repos.Readings, cfg.Channels, log)
		go sim.Run(ctx, tick("ticks.simulator", defaultSimulatorTick))
	}

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	return viper.ReadInConfig()
}

// controlConfig merges the deployed defaults with config overrides.
func controlConfig() (service.Config, error) {
	cfg := service.DefaultConfig()

	if v := viper.GetInt("control.window_size"); v > 0 {
		cfg.WindowSize = v
	}
	if v := viper.GetDuration("control.max_reading_age"); v > 0 {
		cfg.MaxReadingAge = v
	}
	if v := viper.GetFloat64("control.rising_factor"); v > 0 {
		cfg.RisingFactor = v
	}
	if v := viper.GetFloat64("control.baseline_floor"); v > 0 {
		cfg.BaselineFloor = v
	}
	if v := viper.GetFloat64("control.spike_factor"); v > 0 {
		cfg.SpikeFactor = v
	}
	if v := viper.GetInt("control.baseline_samples"); v > 0 {
		cfg.BaselineSamples = v
	}
	if v := viper.GetInt("control.baseline_history"); v > 0 {
		cfg.BaselineHistory = v
	}
	if v := viper.GetDuration("control.quiet_period"); v > 0 {
		cfg.QuietPeriod = v
	}
	if v := viper.GetDuration("control.short_delay"); v > 0 {
		cfg.ShortDelay = v
	}
	if v := viper.GetDuration("control.long_delay"); v > 0 {
		cfg.LongDelay = v
	}

	topics, err := sensorTopics()
	if err != nil {
		return service.Config{}, err
	}
	cfg.SensorTopics = topics
	cfg.SigningKey = viper.GetString("auth.signing_key")
	return cfg, nil
}

// sensorTopics reads the topic -> channel map from config. A channel name
// the decision loops don't query would silently orphan every reading on
// that topic, so unknown names abort startup.
func sensorTopics() (map[string]models.Channel, error) {
	raw := viper.GetStringMapString("mqtt.sensor_topics")
	topics := make(map[string]models.Channel, len(raw))
	for topic, channel := range raw {
		ch, ok := models.ParseChannel(channel)
		if !ok {
			return nil, fmt.Errorf("sensor topic %q maps to unknown channel %q", topic, channel)
		}
		topics[topic] = ch
	}
	return topics, nil
}

// tick reads a loop period from config with a fallback.
func tick(key string, fallback time.Duration) time.Duration {
	if v := viper.GetDuration(key); v > 0 {
		return v
	}
	return fallback
}

// openDB initializes the SQLite database using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "airfilter.db")
		dbPath = "airfilter.db"
	}
	return db.InitDB(dbPath)
}

// subscribeSensors attaches the ingest service to every configured topic.
func subscribeSensors(ctx context.Context, bus mqtt.SensorSubscriber, services *service.Service, cfg service.Config) error {
	topics := make([]string, 0, len(cfg.SensorTopics))
	for topic := range cfg.SensorTopics {
		topics = append(topics, topic)
	}
	if len(topics) == 0 {
		return nil
	}
	return bus.Subscribe(topics, func(topic string, payload []byte) {
		services.Ingest.HandleMessage(ctx, topic, payload)
	})
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
