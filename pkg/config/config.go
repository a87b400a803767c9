package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every environment variable consumed by the service.
	EnvPrefix = "PAWTAG"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AbuseControl  AbuseControlConfig
	AuthRateLimit AuthRateLimitConfig
	Alerts        AlertsConfig
	Tags          TagsConfig
	GCP           GCPConfig
	GCS           GCSConfig
	Documents     DocumentsConfig
	FeatureFlags  FeatureFlagsConfig
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
	Env          string `envconfig:"PAWTAG_APP_ENV" required:"true"`
	Port         string `envconfig:"PAWTAG_APP_PORT" default:"8080"`
	PublicURL    string `envconfig:"PAWTAG_PUBLIC_URL" default:"https://pawtag.app"`
	LogLevel     string `envconfig:"PAWTAG_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PAWTAG_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PAWTAG_DB_DSN"`
	Driver string `envconfig:"PAWTAG_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"PAWTAG_DB_HOST"`
	Port     int    `envconfig:"PAWTAG_DB_PORT" default:"5432"`
	User     string `envconfig:"PAWTAG_DB_USER"`
	Password string `envconfig:"PAWTAG_DB_PASSWORD"`
	Name     string `envconfig:"PAWTAG_DB_NAME"`
	SSLMode  string `envconfig:"PAWTAG_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PAWTAG_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PAWTAG_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PAWTAG_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PAWTAG_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PAWTAG_REDIS_URL"`
	Address      string        `envconfig:"PAWTAG_REDIS_ADDR"`
	Password     string        `envconfig:"PAWTAG_REDIS_PASSWORD"`
	DB           int           `envconfig:"PAWTAG_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PAWTAG_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PAWTAG_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PAWTAG_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PAWTAG_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PAWTAG_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PAWTAG_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PAWTAG_JWT_ISSUER" default:"pawtag"`
	ExpirationMinutes int    `envconfig:"PAWTAG_JWT_EXPIRATION_MINUTES" default:"60"`
	SessionTTLMinutes int    `envconfig:"PAWTAG_SESSION_TTL_MINUTES" default:"43200"`
}

// SessionTTL returns the server-side session lifetime.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.SessionTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.SessionTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"PAWTAG_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"PAWTAG_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"PAWTAG_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"PAWTAG_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"PAWTAG_ARGON_KEY_LEN" default:"32"`
}

// AbuseControlConfig tunes the layered checks applied to anonymous finder reports.
type AbuseControlConfig struct {
	Window            time.Duration `envconfig:"PAWTAG_ABUSE_WINDOW" default:"10m"`
	CooldownWindow    time.Duration `envconfig:"PAWTAG_ABUSE_COOLDOWN_WINDOW" default:"60s"`
	MinFormFillTime   time.Duration `envconfig:"PAWTAG_ABUSE_MIN_FORM_FILL_TIME" default:"1500ms"`
	FingerprintLimit  int           `envconfig:"PAWTAG_ABUSE_FINGERPRINT_LIMIT" default:"5"`
	FingerprintPerTag int           `envconfig:"PAWTAG_ABUSE_FINGERPRINT_TAG_LIMIT" default:"2"`
	TagLimit          int           `envconfig:"PAWTAG_ABUSE_TAG_LIMIT" default:"8"`
	TagVolumeCap      int           `envconfig:"PAWTAG_ABUSE_TAG_VOLUME_CAP" default:"8"`
	MaxMessageLinks   int           `envconfig:"PAWTAG_ABUSE_MAX_MESSAGE_LINKS" default:"2"`
	MaxCharRun        int           `envconfig:"PAWTAG_ABUSE_MAX_CHAR_RUN" default:"8"`
	LocationHosts     []string      `envconfig:"PAWTAG_ABUSE_LOCATION_HOSTS" default:"maps.google.com,goo.gl/maps,maps.apple.com"`
	UseRedisLimiter   bool          `envconfig:"PAWTAG_ABUSE_USE_REDIS_LIMITER" default:"true"`
}

// AuthRateLimitConfig throttles credential endpoints by source IP and by
// the email named in the request body.
type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"PAWTAG_AUTH_RL_LOGIN_WINDOW" default:"1m"`
	LoginIPLimit       int           `envconfig:"PAWTAG_AUTH_RL_LOGIN_IP_LIMIT" default:"10"`
	LoginEmailLimit    int           `envconfig:"PAWTAG_AUTH_RL_LOGIN_EMAIL_LIMIT" default:"5"`
	RegisterWindow     time.Duration `envconfig:"PAWTAG_AUTH_RL_REGISTER_WINDOW" default:"1h"`
	RegisterIPLimit    int           `envconfig:"PAWTAG_AUTH_RL_REGISTER_IP_LIMIT" default:"10"`
	RegisterEmailLimit int           `envconfig:"PAWTAG_AUTH_RL_REGISTER_EMAIL_LIMIT" default:"3"`
}

type AlertsConfig struct {
	MessageMinLength int `envconfig:"PAWTAG_ALERT_MESSAGE_MIN_LENGTH" default:"10"`
	MessageMaxLength int `envconfig:"PAWTAG_ALERT_MESSAGE_MAX_LENGTH" default:"1000"`
	InboxLimit       int `envconfig:"PAWTAG_ALERT_INBOX_LIMIT" default:"200"`
}

type TagsConfig struct {
	PublicIDAttempts int `envconfig:"PAWTAG_PUBLIC_ID_ATTEMPTS" default:"5"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PAWTAG_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"PAWTAG_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PAWTAG_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName        string        `envconfig:"PAWTAG_GCS_BUCKET_NAME"`
	UploadURLExpiry   time.Duration `envconfig:"PAWTAG_GCS_UPLOAD_URL_EXPIRY" default:"15m"`
	DownloadURLExpiry time.Duration `envconfig:"PAWTAG_GCS_DOWNLOAD_URL_EXPIRY" default:"10m"`
}

type DocumentsConfig struct {
	MaxUploadMB int `envconfig:"PAWTAG_DOCUMENT_MAX_UPLOAD_MB" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PAWTAG_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PAWTAG_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	for env, value := range map[string]string{
		"PAWTAG_DB_HOST": db.Host,
		"PAWTAG_DB_USER": db.User,
		"PAWTAG_DB_NAME": db.Name,
	} {
		if value == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either PAWTAG_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}
	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
