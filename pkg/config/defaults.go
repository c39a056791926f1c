package config

const (
	defaultStorageBackend = "sqlite"

	defaultAPIListen = ":8081"

	defaultExtractionProvider  = "openai"
	defaultExtractionModel     = "gpt-4o-mini"
	defaultExtractionBaseURL   = "https://api.openai.com/v1"
	defaultExtractionKeySource = "operator"

	defaultCompressionProvider = "static"

	defaultPipelineWorkers     = 3
	defaultPipelineQueueSize   = 256
	defaultPipelineMaxAttempts = 3
	defaultPipelineJobTimeout  = 120

	defaultWakeBudget = 2000

	defaultEventsProvider = "nop"
	defaultEventsTopic    = "reverie.captures"

	defaultTokenEstimator = "tiktoken"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Backend: defaultStorageBackend,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Extraction: ExtractionConfig{
			Provider:  defaultExtractionProvider,
			Model:     defaultExtractionModel,
			BaseURL:   defaultExtractionBaseURL,
			KeySource: defaultExtractionKeySource,
		},
		Compression: CompressionConfig{
			Provider: defaultCompressionProvider,
		},
		Pipeline: PipelineConfig{
			Workers:           defaultPipelineWorkers,
			QueueSize:         defaultPipelineQueueSize,
			MaxAttempts:       defaultPipelineMaxAttempts,
			JobTimeoutSeconds: defaultPipelineJobTimeout,
		},
		Wake: WakeConfig{
			DefaultBudget: defaultWakeBudget,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
		Tokens: TokensConfig{
			Estimator: defaultTokenEstimator,
		},
	}
}
