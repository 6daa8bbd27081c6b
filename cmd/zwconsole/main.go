package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	adactor "github.com/berfenger/zwconsole/internal/adapter/actor"
	"github.com/berfenger/zwconsole/internal/config"
	"github.com/berfenger/zwconsole/internal/console"
	"github.com/berfenger/zwconsole/internal/core/actor"
	"github.com/berfenger/zwconsole/internal/core/domain"
	"github.com/berfenger/zwconsole/internal/core/ingest"
	"github.com/berfenger/zwconsole/internal/core/service"
	"github.com/berfenger/zwconsole/internal/core/state"
	"github.com/berfenger/zwconsole/internal/server"
	"github.com/berfenger/zwconsole/internal/util/actorutil"
	"github.com/berfenger/zwconsole/pkg/zwave"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/carlmjohnson/versioninfo"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "zwconsole:", err)
		os.Exit(1)
	}
}

func run() error {

	// load and print config
	cfg, err := initConfig(os.Args[1:])
	if err != nil {
		slog.Error("config errors", "error", err)
		return err
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())
	defer logger.Sync()

	logger.Info("starting zwconsole", zap.String("version", versioninfo.Short()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// initializing: a driver failure is fatal
	device, err := zwave.SelectDevice(cfg.Driver.Device, nil)
	if err != nil {
		return err
	}
	opener := zwave.NewSimulatorOpener(cfg.Driver.SimulatorDelay(), logger)
	driverCtx, cancelDriver := context.WithCancel(context.Background())
	defer cancelDriver()
	driver, notifications, err := opener(driverCtx, zwave.Options{
		UserConfigPath:     cfg.Driver.ConfigPath,
		Device:             device,
		SaveConfiguration:  cfg.Driver.SaveConfiguration,
		NotificationBuffer: cfg.Driver.NotificationBuffer,
	})
	if err != nil {
		return fmt.Errorf("driver init: %w", err)
	}

	// running
	eventStream := &eventstream.EventStream{}
	networkState := state.NewNetworkState(logger)
	ingestor := ingest.NewIngestor(networkState, eventStream, logger)
	go func() {
		if err := ingestor.Run(driverCtx, notifications); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("ingestor stopped", zap.Error(err))
		}
	}()

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	root := as.Root

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, eventStream, driverActorProvider(cfg, driver, logger), mqttActorProvider(cfg, logger), logger)
	})
	pid, err := root.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	if err != nil {
		return err
	}

	client := adactor.NewDriverClient(root, pid, cfg.Driver.ClientTimeout(), logger)

	autosave := service.NewAutosaveService(client, cfg.Driver.SaveInterval(), logger)
	if err := autosave.Start(ctx); err != nil {
		logger.Warn("autosave not started", zap.Error(err))
	}

	var apiServer *http.Server
	if cfg.Port > 0 {
		apiServer = server.NewServer(*cfg, root, pid, networkState)
		go func() {
			if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", zap.Error(err))
			}
		}()
	}

	rl, err := console.NewReadline(cfg.Console, os.Stdin, os.Stdout)
	if err != nil {
		return fmt.Errorf("console: %w", err)
	}
	go func() {
		// unblock the pending read on signals
		<-ctx.Done()
		rl.Close()
	}()

	dispatcher := console.NewDispatcher(networkState, client, rl.Stdout(), logger)
	consoleErr := dispatcher.Run(ctx, rl)
	if consoleErr != nil {
		logger.Error("console stopped", zap.Error(consoleErr))
	}

	// shutting down
	shutdown(cfg, logger, autosave, apiServer, client, as, pid)
	cancelDriver()

	return consoleErr
}

func shutdown(cfg *config.Config, logger *zap.Logger, autosave *service.AutosaveService, apiServer *http.Server,
	client *adactor.DriverClient, as *pactor.ActorSystem, master *pactor.PID) {

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	autosave.Stop(ctx)

	if apiServer != nil {
		if err := apiServer.Shutdown(ctx); err != nil {
			logger.Warn("http server forced to shutdown", zap.Error(err))
		}
	}

	if cfg.Driver.SaveConfiguration {
		if err := client.WriteConfigs(ctx); err != nil {
			logger.Warn("could not save configuration", zap.Error(err))
		}
	}

	// stopping the master stops the driver actor, which closes the driver
	if err := as.Root.StopFuture(master).Wait(); err != nil {
		logger.Warn("master did not stop cleanly", zap.Error(err))
	}
	as.Shutdown()
	logger.Info("shutdown complete")
}

func driverActorProvider(cfg *config.Config, driver zwave.Driver, logger *zap.Logger) actor.DriverActorProvider {
	return func() *adactor.DriverActor {
		return adactor.NewDriverActor(driver, cfg.Driver.RequestTimeout(), logger)
	}
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	if !cfg.MQTT.Enable {
		return nil
	}
	return func(es *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, es, logger)
	}
}

func initConfig(args []string) (*config.Config, error) {

	flags := pflag.NewFlagSet("zwconsole", pflag.ContinueOnError)
	flags.String("config-path", "./config/", "directory holding the network configuration files")
	flags.String("log-level", "warn", "log level (debug, info, warn, error, fatal)")
	flags.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: zwconsole [flags] [device|usb|sim]")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	if flags.NArg() > 1 {
		return nil, errors.New("at most one device argument is accepted")
	}

	setConfigDefaults()

	viper.SetEnvPrefix("zwconsole")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	// command line flags take precedence over file and environment
	if f := flags.Lookup("config-path"); f.Changed {
		viper.Set("driver.config_path", f.Value.String())
	}
	if f := flags.Lookup("log-level"); f.Changed {
		viper.Set("log_level", f.Value.String())
	}
	if flags.NArg() == 1 {
		viper.Set("driver.device", flags.Arg(0))
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	cfg.LogLevel = parseLogLevel(viper.GetString("log_level"))

	// check and fix base topic
	baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	// check bounds
	if cfg.Driver.ConfigPath == "" {
		return nil, errors.New("config param driver.config_path must not be empty")
	}
	if cfg.Driver.RequestTimeoutMillis < 100 {
		return nil, errors.New("config param driver.request_timeout_millis should be >= 100")
	}
	if cfg.Driver.NotificationBuffer <= 0 {
		return nil, errors.New("config param driver.notification_buffer should be > 0")
	}
	if cfg.MQTT.Enable && cfg.MQTT.Host == "" {
		return nil, errors.New("config param mqtt.host is required when mqtt is enabled")
	}

	return &cfg, nil
}

func parseLogLevel(level string) zapcore.Level {
	switch level {
	case "trace":
		return zap.DebugLevel
	case "debug":
		return zap.DebugLevel
	case "info":
		return zap.InfoLevel
	case "error":
		return zap.ErrorLevel
	case "warn":
		return zap.WarnLevel
	case "fatal":
		return zap.FatalLevel
	default:
		return zap.WarnLevel
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("driver.config_path", "./config/")
	viper.SetDefault("driver.device", "")
	viper.SetDefault("driver.save_configuration", true)
	viper.SetDefault("driver.save_interval_seconds", 0)
	viper.SetDefault("driver.notification_buffer", 256)
	viper.SetDefault("driver.request_timeout_millis", 5000)
	viper.SetDefault("driver.simulator_delay_millis", 200)
	viper.SetDefault("console.prompt", "> ")
	viper.SetDefault("console.history_file", "")
	viper.SetDefault("mqtt.enable", false)
	viper.SetDefault("mqtt.host", "localhost")
	viper.SetDefault("mqtt.port", 1883)
	viper.SetDefault("mqtt.base_topic", "zwconsole")
	viper.SetDefault("port", 0)
	viper.SetDefault("http_log", false)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Debug("Using", "config", cfg)
}
