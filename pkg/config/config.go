package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	SQLite        SQLiteConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	Tokens        TokensConfig
	Accounts      AccountsConfig
	Mail          MailConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if !cfg.FeatureFlags.UseSQLite {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	if err := cfg.Mail.validate(); err != nil {
		return nil, err
	}
	cfg.App.BaseURL = strings.TrimRight(cfg.App.BaseURL, "/")
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"LOJAS_APP_ENV" required:"true"`
	Port         string   `envconfig:"LOJAS_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"LOJAS_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"LOJAS_LOG_WARN_STACK" default:"false"`
	BaseURL      string   `envconfig:"LOJAS_BASE_URL" default:"http://localhost:8000"`
	HomePath     string   `envconfig:"LOJAS_HOME_PATH" default:"/"`
	CORSOrigins  []string `envconfig:"LOJAS_CORS_ORIGINS" default:"http://localhost:8000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"LOJAS_DB_DSN"`
	Driver string `envconfig:"LOJAS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LOJAS_DB_HOST"`
	LegacyPort     int    `envconfig:"LOJAS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LOJAS_DB_USER"`
	LegacyPassword string `envconfig:"LOJAS_DB_PASSWORD"`
	LegacyName     string `envconfig:"LOJAS_DB_NAME"`
	LegacySSLMode  string `envconfig:"LOJAS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LOJAS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LOJAS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LOJAS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LOJAS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// SQLiteConfig is used when FeatureFlags.UseSQLite is set (local development).
type SQLiteConfig struct {
	Path string `envconfig:"LOJAS_SQLITE_PATH" default:"db.sqlite3"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LOJAS_REDIS_URL" required:"true"`
	Password     string        `envconfig:"LOJAS_REDIS_PASSWORD"`
	DB           int           `envconfig:"LOJAS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LOJAS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LOJAS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LOJAS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LOJAS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LOJAS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig configures the session cookie token.
type JWTConfig struct {
	Secret            string `envconfig:"LOJAS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"LOJAS_JWT_ISSUER" default:"lojas"`
	ExpirationMinutes int    `envconfig:"LOJAS_JWT_EXPIRATION_MINUTES" default:"20160"`
	CookieName        string `envconfig:"LOJAS_SESSION_COOKIE_NAME" default:"sessionid"`
	SecureCookie      bool   `envconfig:"LOJAS_SESSION_COOKIE_SECURE" default:"false"`
}

// SessionTTL returns the session lifetime configured in minutes.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"LOJAS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"LOJAS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"LOJAS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"LOJAS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"LOJAS_ARGON_KEY_LEN" default:"32"`
}

// TokensConfig configures the emailed confirmation and password reset tokens.
type TokensConfig struct {
	Secret string        `envconfig:"LOJAS_TOKEN_SECRET" required:"true"`
	TTL    time.Duration `envconfig:"LOJAS_TOKEN_TTL" default:"72h"`
}

type AccountsConfig struct {
	RequireEmailConfirmation bool `envconfig:"LOJAS_REQUIRE_EMAIL_CONFIRMATION" default:"false"`
}

type MailConfig struct {
	Backend     string        `envconfig:"LOJAS_MAIL_BACKEND" default:"smtp"`
	Host        string        `envconfig:"LOJAS_MAIL_HOST" default:"smtp.gmail.com"`
	Port        int           `envconfig:"LOJAS_MAIL_PORT" default:"587"`
	UseTLS      bool          `envconfig:"LOJAS_MAIL_USE_TLS" default:"true"`
	User        string        `envconfig:"LOJAS_MAIL_USER"`
	Password    string        `envconfig:"LOJAS_MAIL_PASSWORD"`
	DefaultFrom string        `envconfig:"LOJAS_MAIL_DEFAULT_FROM"`
	Timeout     time.Duration `envconfig:"LOJAS_MAIL_TIMEOUT" default:"10s"`
}

// From returns the sender address, falling back to the SMTP user.
func (m MailConfig) From() string {
	if m.DefaultFrom != "" {
		return m.DefaultFrom
	}
	return m.User
}

func (m MailConfig) validate() error {
	switch strings.ToLower(m.Backend) {
	case MailBackendConsole:
		return nil
	case MailBackendSMTP:
		if m.Host == "" {
			return fmt.Errorf("%s is required for the smtp mail backend", EnvMailHost)
		}
		if m.From() == "" {
			return fmt.Errorf("either %s or %s is required for the smtp mail backend", EnvMailDefaultFrom, EnvMailUser)
		}
		return nil
	default:
		return fmt.Errorf("unsupported %s %q", EnvMailBackend, m.Backend)
	}
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"LOJAS_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"LOJAS_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"LOJAS_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"LOJAS_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"LOJAS_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"LOJAS_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	ResetWindow        time.Duration `envconfig:"LOJAS_AUTH_RATE_LIMIT_RESET_WINDOW" default:"15m"`
	ResetEmailLimit    int           `envconfig:"LOJAS_AUTH_RATE_LIMIT_RESET_EMAIL_LIMIT" default:"3"`
	ResetIPLimit       int           `envconfig:"LOJAS_AUTH_RATE_LIMIT_RESET_IP_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"LOJAS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"LOJAS_AUTO_MIGRATE" default:"false"`
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
