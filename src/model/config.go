package model

import "time"

// ----------------------------------------------------
// ================ Logging ================
// LogConfig controls the global zerolog logger
type LogConfig struct {
	Level      string `envconfig:"LEVEL" default:"info"`
	Format     string `envconfig:"FORMAT" default:"console"` // console | json
	Output     string `envconfig:"OUTPUT" default:"stdout"`  // stdout | stderr | file
	FilePath   string `envconfig:"FILE_PATH" default:"logs/chatbot.log"`
	TimeFormat string `envconfig:"TIME_FORMAT" default:"rfc3339"`
}

// ----------------------------------------------------
// ================ Transport ================
// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr            string        `envconfig:"ADDR" default:":8000"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	AllowedOrigins  []string      `envconfig:"ALLOWED_ORIGINS" default:"*"`
	IngestOnStart   bool          `envconfig:"INGEST_ON_START" default:"false"`
}

// ----------------------------------------------------
// ================ Models ================
// LLMConfig selects the chat completion provider
type LLMConfig struct {
	Provider     string        `envconfig:"PROVIDER" default:"openai"` // openai | ollama | deepseek | ark
	Model        string        `envconfig:"MODEL" default:"gpt-3.5-turbo"`
	APIKey       string        `envconfig:"API_KEY"`
	BaseURL      string        `envconfig:"BASE_URL"`
	MaxTokens    int           `envconfig:"MAX_TOKENS" default:"200"`
	Temperature  float64       `envconfig:"TEMPERATURE" default:"0.9"`
	Timeout      time.Duration `envconfig:"TIMEOUT" default:"30s"`
	SystemPrompt string        `envconfig:"SYSTEM_PROMPT" default:"You are a friendly assistant for ZUS Coffee. Answer briefly and helpfully."`

	// SummaryModel answers product questions from search results; empty disables it
	SummaryModel       string  `envconfig:"SUMMARY_MODEL" default:"gpt-4o-mini"`
	SummaryTemperature float64 `envconfig:"SUMMARY_TEMPERATURE" default:"0.3"`
}

// EmbeddingConfig selects the embedding provider
type EmbeddingConfig struct {
	Provider  string        `envconfig:"PROVIDER" default:"openai"` // openai | ollama
	Model     string        `envconfig:"MODEL" default:"text-embedding-3-small"`
	APIKey    string        `envconfig:"API_KEY"`
	BaseURL   string        `envconfig:"BASE_URL"`
	Dimension int           `envconfig:"DIMENSION" default:"1536"`
	Timeout   time.Duration `envconfig:"TIMEOUT" default:"15s"`
}

// ----------------------------------------------------
// ================ Storage ================
// IndexConfig configures the vector index holding product and outlet records
type IndexConfig struct {
	Provider     string        `envconfig:"PROVIDER" default:"pinecone"` // pinecone | memory
	APIKey       string        `envconfig:"API_KEY"`
	ProductsHost string        `envconfig:"PRODUCTS_HOST"`
	OutletsHost  string        `envconfig:"OUTLETS_HOST"`
	Namespace    string        `envconfig:"NAMESPACE"`
	Timeout      time.Duration `envconfig:"TIMEOUT" default:"10s"`
	MaxRetries   uint64        `envconfig:"MAX_RETRIES" default:"3"`
	ScanLimit    int           `envconfig:"SCAN_LIMIT" default:"5000"`
	ProductsTopK int           `envconfig:"PRODUCTS_TOP_K" default:"50"`
	OutletsTopK  int           `envconfig:"OUTLETS_TOP_K" default:"40"`
}

// ConversationConfig configures short-term conversation memory
type ConversationConfig struct {
	Store    string        `envconfig:"STORE" default:"memory"` // memory | redis
	RedisURL string        `envconfig:"REDIS_URL"`
	TTL      time.Duration `envconfig:"TTL" default:"40m"`
	MaxTurns int           `envconfig:"MAX_TURNS" default:"10"`

	// SessionCap bounds the turns kept per session by the in-memory store; 0 keeps all
	SessionCap int `envconfig:"SESSION_CAP" default:"0"`
}

// CatalogConfig configures catalog ingestion
type CatalogConfig struct {
	ProductsURL    string        `envconfig:"PRODUCTS_URL" default:"https://shop.zuscoffee.com/collections/drinkware/products.json"`
	OutletsFeedURL string        `envconfig:"OUTLETS_FEED_URL" default:"https://zuscoffee.com/category/store/kuala-lumpur-selangor/feed/"`
	MaxPages       int           `envconfig:"MAX_PAGES" default:"20"`
	Concurrency    int           `envconfig:"CONCURRENCY" default:"5"`
	BatchSize      int           `envconfig:"BATCH_SIZE" default:"50"`
	Timeout        time.Duration `envconfig:"TIMEOUT" default:"30s"`
}

// ----------------------------------------------------
// ================ Classifier ================
// ClassifierConfig points at the reference corpus used for intent detection
type ClassifierConfig struct {
	CorpusPath    string  `envconfig:"CORPUS_PATH"`
	MinSimilarity float64 `envconfig:"MIN_SIMILARITY" default:"0"`
}
