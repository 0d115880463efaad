package env

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	AppEnv           = "APP_ENV"
	LogLevel         = "LOG_LEVEL"
	AWSRegion        = "AWS_REGION"
	AWSID            = "AWS_ID"
	AWSSecret        = "AWS_SECRET"
	AWSToken         = "AWS_TOKEN"
	DynamoDBEndpoint = "DYNAMODB_ENDPOINT"
	UserSecretKey    = "USER_SECRET"
	AdminSecretKey   = "ADMIN_SECRET"
	AuthRedisURL     = "AUTH_REDIS_URL"
	AuthRedisPass    = "AUTH_REDIS_PASS"
	AuthRedisDB      = "AUTH_REDIS_DB"
	WebUrl           = "WEB_URL"
	APIListenAddr    = "API_LISTEN_ADDR"
	FeedListenAddr   = "FEED_LISTEN_ADDR"
	AccessTokenTTL   = "ACCESS_TOKEN_TTL"
	RefreshTokenTTL  = "REFRESH_TOKEN_TTL"
	LoginCodeTTL     = "LOGIN_CODE_TTL"
	MailTransport    = "MAIL_TRANSPORT"
	WorkerCount      = "HTTP_WORKERS"
	QueueSize        = "HTTP_QUEUE_SIZE"
)

// Load reads a .env file from the working directory when one exists.
// Variables already present in the process environment win.
func Load(files ...string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
	}
	return godotenv.Load(files...)
}

func Get(key string) string {
	return os.Getenv(key)
}

func GetOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func MustGet(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic("env: required environment variable not set: " + key)
	}
	return val
}

func GetInt(key string, defaultVal int) int {
	val, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return val
}

func GetBool(key string, defaultVal bool) bool {
	val, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return val
}

func GetDuration(key string, defaultVal time.Duration) time.Duration {
	val, err := time.ParseDuration(os.Getenv(key))
	if err != nil || val <= 0 {
		return defaultVal
	}
	return val
}

// GetList splits a comma separated value, dropping blanks.
func GetList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
