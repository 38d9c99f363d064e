package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"strings" // For splitting broker lists
	"time"    // For durations

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort     string // Public portal port
	MetricsPort string // Port for /metrics and /healthz
	IsProd      bool   // Is production environment

	JWTSecret    string        // Portal JWT secret key
	SessionTTL   time.Duration // Lifetime of a portal session
	TokenSealKey string        // Hex encoded 32 byte key sealing backend tokens at rest

	BackendURL     string        // MobCash backend base URL
	BackendTimeout time.Duration // Per request timeout towards the backend
	SourceTag      string        // Source tag sent on transaction creation

	DBDriver   string // "mysql" or "postgres"
	DBUser     string // Database user
	DBPassword string // Database password
	DBHost     string // Database host
	DBPort     string // Database port
	DBName     string // Database name

	RedisAddr string // Redis server address
	RedisPass string // Redis password
	RedisDB   int    // Redis database number

	KafkaBrokers     []string // Brokers for wizard outcome events, empty disables publishing
	KafkaTopicWizard string   // Topic for wizard outcome events

	ConfirmSummary   bool // Fetch the last transaction and ask for finalize/cancel before resolving
	USSDFeeDeduction bool // Net a 1% fee from the dialed USSD amount

	WizardTTL        time.Duration // Idle lifetime of a wizard in Redis
	ListCacheTTL     time.Duration // Lifetime of cached list views
	SettingsTTL      time.Duration // Lifetime of the fresh settings copy
	SubmitLockTTL    time.Duration // Upper bound of a submission lock
	JournalRetention time.Duration // Age after which submissions are purged
}

// submitCalls bounds the backend calls made while one submission lock is held (create, refresh, retry, summary)
const submitCalls = 4

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	cfg := &Config{
		AppPort:     getEnv("APP_PORT", "8080"),    // Application port
		MetricsPort: getEnv("METRICS_PORT", "9095"), // Metrics port
		IsProd:      os.Getenv("IS_PROD") == "true", // Is production environment

		JWTSecret:    os.Getenv("JWT_SECRET"),                         // JWT secret key
		SessionTTL:   getDuration("SESSION_TTL", 7*24*time.Hour),      // Session lifetime
		TokenSealKey: os.Getenv("TOKEN_SEAL_KEY"),                     // Token sealing key

		BackendURL:     getEnv("BACKEND_URL", "http://localhost:8000"), // Backend URL
		BackendTimeout: getDuration("BACKEND_TIMEOUT", 15*time.Second), // Backend timeout
		SourceTag:      getEnv("SOURCE_TAG", "web"),                    // Source tag

		DBDriver:   getEnv("DB_DRIVER", "mysql"), // Database driver
		DBUser:     os.Getenv("DB_USER"),         // Database user
		DBPassword: os.Getenv("DB_PASSWORD"),     // Database password
		DBHost:     os.Getenv("DB_HOST"),         // Database host
		DBPort:     os.Getenv("DB_PORT"),         // Database port
		DBName:     os.Getenv("DB_NAME"),         // Database name

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"), // Redis server address
		RedisPass: os.Getenv("REDIS_PASS"),                // Redis password
		RedisDB:   redisDB,                                // Redis database number

		KafkaBrokers:     splitList(os.Getenv("KAFKA_BROKERS")),               // Kafka brokers
		KafkaTopicWizard: getEnv("KAFKA_TOPIC_WIZARD", "portal.wizard.outcome"), // Kafka topic

		ConfirmSummary:   os.Getenv("WIZARD_CONFIRM_SUMMARY") == "true", // Summary confirmation flow
		USSDFeeDeduction: os.Getenv("USSD_FEE_DEDUCTION") == "true",     // USSD fee netting

		WizardTTL:        getDuration("WIZARD_TTL", 30*time.Minute),         // Wizard lifetime
		ListCacheTTL:     getDuration("LIST_CACHE_TTL", 30*time.Second),     // List cache lifetime
		SettingsTTL:      getDuration("SETTINGS_TTL", 5*time.Minute),        // Settings cache lifetime
		SubmitLockTTL:    getDuration("SUBMIT_LOCK_TTL", 30*time.Second),    // Submission lock lifetime
		JournalRetention: getDuration("JOURNAL_RETENTION", 90*24*time.Hour), // Journal retention
	}
	// The lock must outlive the slowest submission it covers
	if floor := cfg.BackendTimeout*submitCalls + 5*time.Second; cfg.SubmitLockTTL < floor {
		cfg.SubmitLockTTL = floor
	}
	return cfg
}

// DSN builds the data source name for the configured driver
func (c *Config) DSN() string {
	if c.DBDriver == "postgres" {
		return "host=" + c.DBHost + " user=" + c.DBUser + " password=" + c.DBPassword +
			" dbname=" + c.DBName + " port=" + c.DBPort + " sslmode=disable"
	}
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true"
}

// getEnv returns the value of the environment variable or the default
func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

// getDuration parses a duration variable, falling back to def on absence or error
func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
