// Package servecmder provides the serve command for running the reverie services.
package servecmder

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/reveriehq/reverie/api"
	mcpapi "github.com/reveriehq/reverie/api/mcp"
	"github.com/reveriehq/reverie/pkg/compress"
	compressopenai "github.com/reveriehq/reverie/pkg/compress/openai"
	compressstatic "github.com/reveriehq/reverie/pkg/compress/static"
	"github.com/reveriehq/reverie/pkg/config"
	"github.com/reveriehq/reverie/pkg/dotdir"
	"github.com/reveriehq/reverie/pkg/eventstream"
	eventskafka "github.com/reveriehq/reverie/pkg/eventstream/kafka"
	eventsnop "github.com/reveriehq/reverie/pkg/eventstream/nop"
	"github.com/reveriehq/reverie/pkg/extract"
	extractopenai "github.com/reveriehq/reverie/pkg/extract/openai"
	extractstatic "github.com/reveriehq/reverie/pkg/extract/static"
	"github.com/reveriehq/reverie/pkg/logger"
	"github.com/reveriehq/reverie/pkg/pipeline"
	"github.com/reveriehq/reverie/pkg/storage"
	"github.com/reveriehq/reverie/pkg/storage/inmemory"
	"github.com/reveriehq/reverie/pkg/storage/postgres"
	"github.com/reveriehq/reverie/pkg/storage/sqlite"
	"github.com/reveriehq/reverie/pkg/tokens"
	"github.com/reveriehq/reverie/pkg/wake"
)

type serveCommander struct {
	debug     bool
	configDir string
	mcpListen string
	logJSON   bool
	logger    *zap.Logger
	v         *viper.Viper

	// Flag targets. Values are read back through viper so that the
	// flag > env > config file > default precedence chain applies.
	listen             string
	storageBackend     string
	sqlitePath         string
	postgresDSN        string
	extractionProvider string
	extractionModel    string
	workers            uint
	queueSize          uint
	eventsProvider     string
	eventsBrokers      string
	eventsTopic        string
}

const serveLongDesc string = `Run the reverie services.

Starts the HTTP API, the MCP server, and the background extraction pipeline
against a shared storage backend. Configuration resolves from flags, then
REVERIE_ environment variables, then config.toml, then built-in defaults.`

const serveShortDesc string = "Run the reverie API, MCP server, and extraction pipeline"

// serveFlags is the registry of flags the serve command binds into viper.
var serveFlags = config.FlagSet{
	config.FlagAPIListen:          {Name: "listen", Shorthand: "l", ViperKey: "api.listen", Description: "Address for API server to listen on"},
	config.FlagStorageBackend:     {Name: "storage", ViperKey: "storage.backend", Description: "Storage backend (sqlite, postgres, memory)"},
	config.FlagSQLite:             {Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path", Description: "Path to SQLite database (default: .reverie/reverie.db)"},
	config.FlagPostgresDSN:        {Name: "postgres-dsn", ViperKey: "storage.postgres_dsn", Description: "Postgres connection string"},
	config.FlagExtractionProvider: {Name: "extraction-provider", ViperKey: "extraction.provider", Description: "Extraction driver (openai, static)"},
	config.FlagExtractionModel:    {Name: "extraction-model", ViperKey: "extraction.model", Description: "Model used for memory extraction"},
	config.FlagPipelineWorkers:    {Name: "workers", ViperKey: "pipeline.workers", Description: "Number of extraction workers"},
	config.FlagPipelineQueueSize:  {Name: "queue-size", ViperKey: "pipeline.queue_size", Description: "Extraction job queue capacity"},
	config.FlagEventsProvider:     {Name: "events-provider", ViperKey: "events.provider", Description: "Event publisher (nop, kafka)"},
	config.FlagEventsBrokers:      {Name: "events-brokers", ViperKey: "events.brokers", Description: "Kafka broker addresses (comma-separated)"},
	config.FlagEventsTopic:        {Name: "events-topic", ViperKey: "events.topic", Description: "Kafka topic for capture events"},
}

var serveFlagKeys = []string{
	config.FlagAPIListen,
	config.FlagStorageBackend,
	config.FlagSQLite,
	config.FlagPostgresDSN,
	config.FlagExtractionProvider,
	config.FlagExtractionModel,
	config.FlagPipelineWorkers,
	config.FlagPipelineQueueSize,
	config.FlagEventsProvider,
	config.FlagEventsBrokers,
	config.FlagEventsTopic,
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}

			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			cmder.v, err = config.InitViper(cmder.configDir)
			if err != nil {
				return err
			}

			config.BindRegisteredFlags(cmder.v, cmd, serveFlags, serveFlagKeys)
			return nil
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, serveFlags, config.FlagAPIListen, &cmder.listen)
	config.AddStringFlag(cmd, serveFlags, config.FlagStorageBackend, &cmder.storageBackend)
	config.AddStringFlag(cmd, serveFlags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, serveFlags, config.FlagPostgresDSN, &cmder.postgresDSN)
	config.AddStringFlag(cmd, serveFlags, config.FlagExtractionProvider, &cmder.extractionProvider)
	config.AddStringFlag(cmd, serveFlags, config.FlagExtractionModel, &cmder.extractionModel)
	config.AddUintFlag(cmd, serveFlags, config.FlagPipelineWorkers, &cmder.workers)
	config.AddUintFlag(cmd, serveFlags, config.FlagPipelineQueueSize, &cmder.queueSize)
	config.AddStringFlag(cmd, serveFlags, config.FlagEventsProvider, &cmder.eventsProvider)
	config.AddStringFlag(cmd, serveFlags, config.FlagEventsBrokers, &cmder.eventsBrokers)
	config.AddStringFlag(cmd, serveFlags, config.FlagEventsTopic, &cmder.eventsTopic)

	cmd.Flags().StringVar(&cmder.mcpListen, "mcp-listen", ":8082", "Address for MCP server to listen on")
	cmd.Flags().BoolVar(&cmder.logJSON, "log-json", false, "Emit JSON log lines instead of console output")

	return cmd
}

func (c *serveCommander) run() error {
	if c.logJSON {
		c.logger = logger.NewJSONLogger(c.debug)
	} else {
		c.logger = logger.NewLogger(c.debug)
	}
	defer c.logger.Sync()

	driver, err := c.newStorageDriver()
	if err != nil {
		return err
	}
	defer driver.Close()

	estimator := c.newEstimator()

	extractor, err := c.newExtractor()
	if err != nil {
		return err
	}

	compressor, fallback, err := c.newCompressors(estimator)
	if err != nil {
		return err
	}

	events, err := c.newPublisher()
	if err != nil {
		return err
	}
	defer events.Close()

	pipe, err := pipeline.New(&pipeline.Config{
		Store:       driver,
		Extractor:   extractor,
		Estimator:   estimator,
		Events:      events,
		NumWorkers:  c.v.GetUint("pipeline.workers"),
		QueueSize:   c.v.GetUint("pipeline.queue_size"),
		JobTimeout:  time.Duration(c.v.GetInt("pipeline.job_timeout_seconds")) * time.Second,
		MaxAttempts: c.v.GetInt("pipeline.max_attempts"),
		Logger:      c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating pipeline: %w", err)
	}
	defer pipe.Close()

	generator := wake.NewGenerator(compressor, fallback, c.logger)

	apiServer := api.NewServer(api.Config{
		ListenAddr: c.v.GetString("api.listen"),
	}, driver, pipe, generator, estimator, c.logger)

	mcpServer, err := mcpapi.NewServer(mcpapi.Config{
		Store:     driver,
		Generator: generator,
		Logger:    c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	mcpHTTP := &http.Server{
		Addr:    c.mcpListen,
		Handler: mcpServer.Handler(),
	}

	// Channel to capture errors from goroutines
	errChan := make(chan error, 2)

	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	go func() {
		c.logger.Info("starting MCP server", zap.String("listen", c.mcpListen))
		if err := mcpHTTP.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("MCP server error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := apiServer.Shutdown(); err != nil {
			c.logger.Warn("API shutdown", zap.Error(err))
		}
		if err := mcpHTTP.Shutdown(ctx); err != nil {
			c.logger.Warn("MCP shutdown", zap.Error(err))
		}
		return nil
	}
}

func (c *serveCommander) newStorageDriver() (storage.Driver, error) {
	backend := c.v.GetString("storage.backend")

	switch backend {
	case "sqlite":
		path := c.v.GetString("storage.sqlite_path")
		if path == "" {
			var err error
			path, err = dotdir.NewManager().DatabasePath(c.configDir)
			if err != nil {
				return nil, fmt.Errorf("resolving database path: %w", err)
			}
		}
		driver, err := sqlite.New(path)
		if err != nil {
			return nil, fmt.Errorf("creating SQLite driver: %w", err)
		}
		c.logger.Info("using SQLite storage", zap.String("path", path))
		return driver, nil

	case "postgres":
		dsn := c.v.GetString("storage.postgres_dsn")
		if dsn == "" {
			return nil, fmt.Errorf("postgres backend requires storage.postgres_dsn")
		}
		driver, err := postgres.New(dsn)
		if err != nil {
			return nil, fmt.Errorf("creating Postgres driver: %w", err)
		}
		c.logger.Info("using Postgres storage")
		return driver, nil

	case "memory":
		c.logger.Info("using in-memory storage")
		return inmemory.NewDriver(), nil

	default:
		return nil, fmt.Errorf("unknown storage backend: %q (available: sqlite, postgres, memory)", backend)
	}
}

func (c *serveCommander) newEstimator() tokens.Estimator {
	if c.v.GetString("tokens.estimator") == "heuristic" {
		return tokens.NewHeuristic()
	}

	est, err := tokens.NewTiktoken()
	if err != nil {
		c.logger.Warn("tiktoken unavailable, falling back to heuristic estimator", zap.Error(err))
		return tokens.NewHeuristic()
	}
	return est
}

func (c *serveCommander) newExtractor() (extract.Extractor, error) {
	provider := c.v.GetString("extraction.provider")

	switch provider {
	case "openai":
		driver, err := extractopenai.NewDriver(
			os.Getenv("OPENAI_API_KEY"),
			extractopenai.WithModel(c.v.GetString("extraction.model")),
			extractopenai.WithBaseURL(c.v.GetString("extraction.base_url")),
			extractopenai.WithKeySource(extract.KeySource(c.v.GetString("extraction.key_source"))),
		)
		if err != nil {
			return nil, fmt.Errorf("creating extraction driver: %w", err)
		}
		return driver, nil

	case "static":
		return extractstatic.NewDriver(), nil

	default:
		return nil, fmt.Errorf("unknown extraction provider: %q (available: openai, static)", provider)
	}
}

// newCompressors returns the primary compressor and the deterministic fallback
// used when the primary fails mid-generation.
func (c *serveCommander) newCompressors(estimator tokens.Estimator) (compress.Compressor, compress.Compressor, error) {
	static := compressstatic.NewDriver(estimator)

	switch provider := c.v.GetString("compression.provider"); provider {
	case "openai":
		driver, err := compressopenai.NewDriver(
			os.Getenv("OPENAI_API_KEY"),
			estimator,
			compressopenai.WithModel(c.v.GetString("extraction.model")),
			compressopenai.WithBaseURL(c.v.GetString("extraction.base_url")),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("creating compression driver: %w", err)
		}
		return driver, static, nil

	case "static":
		return static, static, nil

	default:
		return nil, nil, fmt.Errorf("unknown compression provider: %q (available: openai, static)", provider)
	}
}

func (c *serveCommander) newPublisher() (eventstream.Publisher, error) {
	switch provider := c.v.GetString("events.provider"); provider {
	case "kafka":
		brokers := splitBrokers(c.v.GetStringSlice("events.brokers"))
		topic := c.v.GetString("events.topic")

		pub, err := eventskafka.NewPublisher(brokers, topic)
		if err != nil {
			return nil, fmt.Errorf("creating Kafka publisher: %w", err)
		}
		c.logger.Info("publishing capture events to Kafka",
			zap.Strings("brokers", brokers),
			zap.String("topic", topic),
		)
		return pub, nil

	case "nop":
		return eventsnop.NewPublisher(), nil

	default:
		return nil, fmt.Errorf("unknown events provider: %q (available: nop, kafka)", provider)
	}
}

// splitBrokers expands comma-separated broker lists, which appear when the
// value arrives via the --events-brokers flag or a REVERIE_ env var.
func splitBrokers(raw []string) []string {
	brokers := make([]string, 0, len(raw))
	for _, r := range raw {
		for _, b := range strings.Split(r, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}
	return brokers
}
