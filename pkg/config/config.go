package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	OpenAI       OpenAIConfig
	Retrieval    RetrievalConfig
	VectorStore  VectorStoreConfig
	Session      SessionConfig
	Voucher      VoucherConfig
	Indexer      IndexerConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"AGENTIC_APP_ENV" required:"true"`
	Port         string `envconfig:"AGENTIC_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"AGENTIC_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"AGENTIC_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"AGENTIC_DB_DSN"`
	Driver string `envconfig:"AGENTIC_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"AGENTIC_DB_HOST"`
	LegacyPort     int    `envconfig:"AGENTIC_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"AGENTIC_DB_USER"`
	LegacyPassword string `envconfig:"AGENTIC_DB_PASSWORD"`
	LegacyName     string `envconfig:"AGENTIC_DB_NAME"`
	LegacySSLMode  string `envconfig:"AGENTIC_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"AGENTIC_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"AGENTIC_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"AGENTIC_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"AGENTIC_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"AGENTIC_REDIS_URL" required:"true"`
	Address      string        `envconfig:"AGENTIC_REDIS_ADDR"`
	Password     string        `envconfig:"AGENTIC_REDIS_PASSWORD"`
	DB           int           `envconfig:"AGENTIC_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AGENTIC_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AGENTIC_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AGENTIC_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AGENTIC_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AGENTIC_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type OpenAIConfig struct {
	APIKey         string        `envconfig:"AGENTIC_OPENAI_API_KEY"`
	BaseURL        string        `envconfig:"AGENTIC_OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	ChatModel      string        `envconfig:"AGENTIC_OPENAI_CHAT_MODEL" default:"gpt-4o-mini"`
	EmbedModel     string        `envconfig:"AGENTIC_OPENAI_EMBED_MODEL" default:"text-embedding-3-small"`
	RequestTimeout time.Duration `envconfig:"AGENTIC_OPENAI_REQUEST_TIMEOUT" default:"60s"`
	MaxAttempts    int           `envconfig:"AGENTIC_OPENAI_MAX_ATTEMPTS" default:"3"`
	RetryBaseDelay time.Duration `envconfig:"AGENTIC_OPENAI_RETRY_BASE_DELAY" default:"500ms"`
}

type RetrievalConfig struct {
	TopK          int     `envconfig:"AGENTIC_RETRIEVAL_TOP_K" default:"5"`
	MinSimilarity float64 `envconfig:"AGENTIC_RETRIEVAL_MIN_SIMILARITY" default:"0.7"`
}

type VectorStoreConfig struct {
	Dir                string `envconfig:"AGENTIC_VECTORSTORE_DIR" default:"./data/vectorstore"`
	ProductsCollection string `envconfig:"AGENTIC_VECTORSTORE_PRODUCTS_COLLECTION" default:"products"`
	HandbookCollection string `envconfig:"AGENTIC_VECTORSTORE_HANDBOOK_COLLECTION" default:"general_handbook"`
	HandbookPath       string `envconfig:"AGENTIC_HANDBOOK_PATH" default:"./data/general_handbook.md"`
}

type SessionConfig struct {
	TTL      time.Duration `envconfig:"AGENTIC_SESSION_TTL" default:"30m"`
	MaxTurns int           `envconfig:"AGENTIC_SESSION_MAX_TURNS" default:"10"`
}

type VoucherConfig struct {
	Amount string `envconfig:"AGENTIC_VOUCHER_AMOUNT" default:"2000.00"`
}

type IndexerConfig struct {
	BatchSize    int `envconfig:"AGENTIC_INDEXER_BATCH_SIZE" default:"100"`
	ChunkSize    int `envconfig:"AGENTIC_INDEXER_CHUNK_SIZE" default:"1000"`
	ChunkOverlap int `envconfig:"AGENTIC_INDEXER_CHUNK_OVERLAP" default:"200"`
}

type RateLimitConfig struct {
	Window       time.Duration `envconfig:"AGENTIC_RATE_LIMIT_WINDOW" default:"1m"`
	PerUserLimit int64         `envconfig:"AGENTIC_RATE_LIMIT_PER_USER" default:"30"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"AGENTIC_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"AGENTIC_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
