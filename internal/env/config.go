package env

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

type AWSConfig struct {
	Region       string
	AccessKey    string
	SecretKey    string
	SessionToken string
	Endpoint     string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	UserSecret      string
	AdminSecret     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	LoginCodeTTL    time.Duration
}

type HTTPConfig struct {
	APIListenAddr  string
	FeedListenAddr string
	AllowedOrigins []string
	Workers        int
	QueueSize      int
}

type Config struct {
	Environment   string
	LogLevel      string
	AWS           AWSConfig
	Redis         RedisConfig
	Auth          AuthConfig
	HTTP          HTTPConfig
	MailTransport string
}

func LoadConfig() Config {
	return Config{
		Environment: GetOrDefault(AppEnv, "development"),
		LogLevel:    GetOrDefault(LogLevel, "info"),
		AWS: AWSConfig{
			Region:       Get(AWSRegion),
			AccessKey:    Get(AWSID),
			SecretKey:    Get(AWSSecret),
			SessionToken: Get(AWSToken),
			Endpoint:     Get(DynamoDBEndpoint),
		},
		Redis: RedisConfig{
			Addr:     Get(AuthRedisURL),
			Password: Get(AuthRedisPass),
			DB:       GetInt(AuthRedisDB, 0),
		},
		Auth: AuthConfig{
			UserSecret:      Get(UserSecretKey),
			AdminSecret:     Get(AdminSecretKey),
			AccessTokenTTL:  GetDuration(AccessTokenTTL, 15*time.Minute),
			RefreshTokenTTL: GetDuration(RefreshTokenTTL, 30*24*time.Hour),
			LoginCodeTTL:    GetDuration(LoginCodeTTL, 10*time.Minute),
		},
		HTTP: HTTPConfig{
			APIListenAddr:  GetOrDefault(APIListenAddr, ":81"),
			FeedListenAddr: GetOrDefault(FeedListenAddr, ":83"),
			AllowedOrigins: GetList(WebUrl),
			Workers:        GetInt(WorkerCount, 10),
			QueueSize:      GetInt(QueueSize, 10),
		},
		MailTransport: GetOrDefault(MailTransport, "log"),
	}
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// Validate reports every required setting that is missing.
func (c Config) Validate() error {
	var missing []string
	check := func(key, val string) {
		if val == "" {
			missing = append(missing, key)
		}
	}
	check(AWSRegion, c.AWS.Region)
	check(AuthRedisURL, c.Redis.Addr)
	check(UserSecretKey, c.Auth.UserSecret)
	check(AdminSecretKey, c.Auth.AdminSecret)
	if c.IsProduction() && len(c.HTTP.AllowedOrigins) == 0 {
		missing = append(missing, WebUrl)
	}

	if len(missing) > 0 {
		return fmt.Errorf("env: required environment variables not set: %s", strings.Join(missing, ", "))
	}
	return nil
}

// LogFields returns the non-secret settings for startup logging.
func (c Config) LogFields() []zap.Field {
	return []zap.Field{
		zap.String("environment", c.Environment),
		zap.String("log_level", c.LogLevel),
		zap.String("aws_region", c.AWS.Region),
		zap.String("dynamodb_endpoint", c.AWS.Endpoint),
		zap.String("redis_addr", c.Redis.Addr),
		zap.Duration("access_token_ttl", c.Auth.AccessTokenTTL),
		zap.Duration("login_code_ttl", c.Auth.LoginCodeTTL),
		zap.Strings("allowed_origins", c.HTTP.AllowedOrigins),
		zap.String("mail_transport", c.MailTransport),
	}
}
