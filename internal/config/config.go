package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const defaultGatewayTimeout = 10 * time.Second

type Config struct {
	AppEnv  string
	AppPort string
	LogFile string

	CinetPayAPIKey    string
	CinetPaySiteID    int64
	CinetPayNotifyURL string
	CinetPayReturnURL string
	CinetPayLang      string
	CinetPayBaseURL   string
	GatewayTimeout    time.Duration

	StoreDriver    string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	DBURL          string
	DynamoTable    string
	DynamoEndpoint string
	AWSRegion      string

	JWTSecret string
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:  os.Getenv("APP_ENV"),
		AppPort: getenvDefault("APP_PORT", "8080"),
		LogFile: os.Getenv("LOG_FILE"),

		CinetPayAPIKey:    os.Getenv("CINETPAY_APIKEY"),
		CinetPaySiteID:    parseInt64(os.Getenv("CINETPAY_SITE_ID")),
		CinetPayNotifyURL: os.Getenv("CINETPAY_NOTIFY_URL"),
		CinetPayReturnURL: os.Getenv("CINETPAY_RETURN_URL"),
		CinetPayLang:      getenvDefault("CINETPAY_LANG", "fr"),
		CinetPayBaseURL:   os.Getenv("CINETPAY_BASE_URL"),
		GatewayTimeout:    parseDuration(os.Getenv("CINETPAY_TIMEOUT"), defaultGatewayTimeout),

		StoreDriver:    getenvDefault("STORE_DRIVER", "memory"),
		RedisAddr:      getenvDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        int(parseInt64(os.Getenv("REDIS_DB"))),
		DBURL:          os.Getenv("DB_URL"),
		DynamoTable:    getenvDefault("DYNAMODB_TABLE", "payment_records"),
		DynamoEndpoint: os.Getenv("DYNAMODB_ENDPOINT"),
		AWSRegion:      getenvDefault("AWS_REGION", "us-east-1"),

		JWTSecret: os.Getenv("BRIDGE_JWT_SECRET"),
	}

	if cfg.CinetPayAPIKey == "" {
		log.Println("CINETPAY_APIKEY is empty, merchant configuration will be rejected")
	}

	return cfg
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt64(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// parseDuration accepts Go durations ("15s") or a bare number of milliseconds.
func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}
