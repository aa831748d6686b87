package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Server struct {
		Addr               string   `yaml:"addr"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`

	Storage struct {
		// memory | postgres
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxConns        int    `yaml:"max_conns"`
			MinConns        int    `yaml:"min_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		// memory | redis; backs the rate limiter and code cooldowns
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	JWT struct {
		Issuer    string `yaml:"issuer"`
		Audience  string `yaml:"audience"`
		AccessTTL string `yaml:"access_ttl"`
		// EdDSA | HS256
		Alg string `yaml:"alg"`
		KID string `yaml:"kid"`
		// base64(32 bytes); EdDSA private key seed
		Ed25519Seed string `yaml:"ed25519_seed"`
		HS256Secret string `yaml:"hs256_secret"`
	} `yaml:"jwt"`

	Refresh struct {
		TTL string `yaml:"ttl"`
		// window during which a replay of the immediately previous
		// refresh token is answered with the current pair
		GraceWindow time.Duration `yaml:"grace_window"`
		// true: a replayed token outside the grace window revokes every
		// session of the user, not just the matched one
		ReplayRevokesAll bool `yaml:"replay_revokes_all"`
	} `yaml:"refresh"`

	Lockout struct {
		Threshold int           `yaml:"threshold"`
		Duration  time.Duration `yaml:"duration"`
	} `yaml:"lockout"`

	Codes struct {
		TTL         time.Duration `yaml:"ttl"`
		Cooldown    time.Duration `yaml:"cooldown"`
		MaxAttempts int           `yaml:"max_attempts"`
		Length      int           `yaml:"length"`
	} `yaml:"codes"`

	Register struct {
		AutoLogin bool `yaml:"auto_login"`
		// when true, register demands a verification code for the
		// email/phone being claimed
		RequireVerification bool `yaml:"require_verification"`
	} `yaml:"register"`

	Rate struct {
		Enabled     bool   `yaml:"enabled"`
		Window      string `yaml:"window"`
		MaxRequests int    `yaml:"max_requests"`

		Login struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"login"`

		Code struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"code"`

		Forgot struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"forgot"`

		Refresh struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"refresh"`
	} `yaml:"rate"`

	Flags struct {
		Migrate bool `yaml:"migrate"`
	} `yaml:"flags"`

	SMTP struct {
		Host               string `yaml:"host"`
		Port               int    `yaml:"port"`
		Username           string `yaml:"username"`
		Password           string `yaml:"password"`
		From               string `yaml:"from"`
		TLS                string `yaml:"tls"` // auto | starttls | ssl | none
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
	} `yaml:"smtp"`

	Security struct {
		// base64(32 bytes); seals the current refresh token at rest
		MasterKey      string `yaml:"master_key"`
		PasswordPolicy struct {
			MinLength     int  `yaml:"min_length"`
			RequireUpper  bool `yaml:"require_upper"`
			RequireLower  bool `yaml:"require_lower"`
			RequireDigit  bool `yaml:"require_digit"`
			RequireSymbol bool `yaml:"require_symbol"`
		} `yaml:"password_policy"`
		PasswordDenylistPath string `yaml:"password_denylist_path"`
	} `yaml:"security"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Memory.DefaultTTL == "" {
		c.Cache.Memory.DefaultTTL = "2m"
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "tastebase-auth"
	}
	if c.JWT.Audience == "" {
		c.JWT.Audience = "tastebase"
	}
	if c.JWT.AccessTTL == "" {
		c.JWT.AccessTTL = "15m"
	}
	if c.JWT.Alg == "" {
		c.JWT.Alg = "EdDSA"
	}
	if c.JWT.KID == "" {
		c.JWT.KID = "k1"
	}
	if c.Refresh.TTL == "" {
		c.Refresh.TTL = "720h" // 30d
	}
	if c.Refresh.GraceWindow == 0 {
		c.Refresh.GraceWindow = 30 * time.Second
	}
	if c.Lockout.Threshold == 0 {
		c.Lockout.Threshold = 5
	}
	if c.Lockout.Duration == 0 {
		c.Lockout.Duration = time.Hour
	}
	if c.Codes.TTL == 0 {
		c.Codes.TTL = 10 * time.Minute
	}
	if c.Codes.Cooldown == 0 {
		c.Codes.Cooldown = 60 * time.Second
	}
	if c.Codes.MaxAttempts == 0 {
		c.Codes.MaxAttempts = 3
	}
	if c.Codes.Length == 0 {
		c.Codes.Length = 6
	}
	if c.Rate.Window == "" {
		c.Rate.Window = "1m"
	}
	if c.Rate.MaxRequests == 0 {
		c.Rate.MaxRequests = 60
	}
	if c.Rate.Login.Limit == 0 {
		c.Rate.Login.Limit = 10
	}
	if c.Rate.Login.Window == "" {
		c.Rate.Login.Window = "1m"
	}
	if c.Rate.Code.Limit == 0 {
		c.Rate.Code.Limit = 5
	}
	if c.Rate.Code.Window == "" {
		c.Rate.Code.Window = "10m"
	}
	if c.Rate.Forgot.Limit == 0 {
		c.Rate.Forgot.Limit = 5
	}
	if c.Rate.Forgot.Window == "" {
		c.Rate.Forgot.Window = "10m"
	}
	if c.Rate.Refresh.Limit == 0 {
		c.Rate.Refresh.Limit = 60
	}
	if c.Rate.Refresh.Window == "" {
		c.Rate.Refresh.Window = "1m"
	}
	if c.Security.PasswordPolicy.MinLength == 0 {
		c.Security.PasswordPolicy.MinLength = 8
	}
	if c.SMTP.TLS == "" {
		c.SMTP.TLS = "auto"
	}

	c.applyEnvOverrides()

	// validate string durations (after env so overrides are covered too)
	for _, s := range []string{
		c.Storage.Postgres.ConnMaxLifetime,
		c.Cache.Memory.DefaultTTL,
		c.JWT.AccessTTL,
		c.Refresh.TTL,
		c.Rate.Window,
		c.Rate.Login.Window,
		c.Rate.Code.Window,
		c.Rate.Forgot.Window,
		c.Rate.Refresh.Window,
	} {
		if s == "" {
			continue
		}
		if _, err := time.ParseDuration(s); err != nil {
			return nil, fmt.Errorf("config: bad duration %q: %w", s, err)
		}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	// denylist path, if relative, resolves against the YAML's directory
	if p := strings.TrimSpace(c.Security.PasswordDenylistPath); p != "" {
		if !filepath.IsAbs(p) {
			base := filepath.Dir(path)
			c.Security.PasswordDenylistPath = filepath.Clean(filepath.Join(base, p))
		}
	}

	return &c, nil
}

// Validate rejects combinations Load's defaults cannot repair.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory", "postgres":
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver == "postgres" && strings.TrimSpace(c.Storage.DSN) == "" {
		return fmt.Errorf("config: storage.dsn required for postgres driver")
	}
	switch c.Cache.Kind {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: unknown cache kind %q", c.Cache.Kind)
	}
	if c.Cache.Kind == "redis" && strings.TrimSpace(c.Cache.Redis.Addr) == "" {
		return fmt.Errorf("config: cache.redis.addr required for redis cache")
	}
	switch c.JWT.Alg {
	case "EdDSA", "HS256":
	default:
		return fmt.Errorf("config: unsupported jwt alg %q", c.JWT.Alg)
	}
	if c.JWT.Alg == "HS256" && strings.TrimSpace(c.JWT.HS256Secret) == "" {
		return fmt.Errorf("config: jwt.hs256_secret required for HS256")
	}
	if c.Codes.Length < 4 || c.Codes.Length > 10 {
		return fmt.Errorf("config: codes.length %d out of range [4,10]", c.Codes.Length)
	}
	return nil
}

// AccessTTL returns jwt.access_ttl as a duration. Load validated the string.
func (c *Config) AccessTTL() time.Duration {
	d, _ := time.ParseDuration(c.JWT.AccessTTL)
	return d
}

// RefreshTTL returns refresh.ttl as a duration. Load validated the string.
func (c *Config) RefreshTTL() time.Duration {
	d, _ := time.ParseDuration(c.Refresh.TTL)
	return d
}

// ---- env helpers ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}
func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		if strings.TrimSpace(s) == "" {
			return []string{}, true
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

// applyEnvOverrides lets the environment win over config.yaml.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvCSV("SERVER_CORS_ALLOWED_ORIGINS"); ok {
		c.Server.CORSAllowedOrigins = v
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_CONNS"); ok {
		c.Storage.Postgres.MaxConns = v
	}
	if v, ok := getEnvInt("POSTGRES_MIN_CONNS"); ok {
		c.Storage.Postgres.MinConns = v
	}
	if v, ok := getEnvStr("POSTGRES_CONN_MAX_LIFETIME"); ok {
		c.Storage.Postgres.ConnMaxLifetime = v
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}
	if v, ok := getEnvStr("CACHE_MEMORY_DEFAULT_TTL"); ok {
		c.Cache.Memory.DefaultTTL = v
	}

	// JWT
	if v, ok := getEnvStr("JWT_ISSUER"); ok {
		c.JWT.Issuer = v
	}
	if v, ok := getEnvStr("JWT_AUDIENCE"); ok {
		c.JWT.Audience = v
	}
	if v, ok := getEnvStr("JWT_ACCESS_TTL"); ok {
		c.JWT.AccessTTL = v
	}
	if v, ok := getEnvStr("JWT_ALG"); ok {
		c.JWT.Alg = v
	}
	if v, ok := getEnvStr("JWT_KID"); ok {
		c.JWT.KID = v
	}
	if v, ok := getEnvStr("JWT_ED25519_SEED"); ok {
		c.JWT.Ed25519Seed = v
	}
	if v, ok := getEnvStr("JWT_HS256_SECRET"); ok {
		c.JWT.HS256Secret = v
	}
	// Test-only overrides (useful in CI/e2e): take precedence if set
	if v, ok := getEnvStr("TEST_ACCESS_TTL"); ok {
		c.JWT.AccessTTL = v
	}
	if v, ok := getEnvStr("TEST_REFRESH_TTL"); ok {
		c.Refresh.TTL = v
	}

	// REFRESH
	if v, ok := getEnvStr("REFRESH_TTL"); ok {
		c.Refresh.TTL = v
	}
	if v, ok := getEnvDur("REFRESH_GRACE_WINDOW"); ok {
		c.Refresh.GraceWindow = v
	}
	if v, ok := getEnvBool("REFRESH_REPLAY_REVOKES_ALL"); ok {
		c.Refresh.ReplayRevokesAll = v
	}

	// LOCKOUT
	if v, ok := getEnvInt("LOCKOUT_THRESHOLD"); ok {
		c.Lockout.Threshold = v
	}
	if v, ok := getEnvDur("LOCKOUT_DURATION"); ok {
		c.Lockout.Duration = v
	}

	// CODES
	if v, ok := getEnvDur("CODES_TTL"); ok {
		c.Codes.TTL = v
	}
	if v, ok := getEnvDur("CODES_COOLDOWN"); ok {
		c.Codes.Cooldown = v
	}
	if v, ok := getEnvInt("CODES_MAX_ATTEMPTS"); ok {
		c.Codes.MaxAttempts = v
	}
	if v, ok := getEnvInt("CODES_LENGTH"); ok {
		c.Codes.Length = v
	}

	// REGISTER
	if v, ok := getEnvBool("REGISTER_AUTO_LOGIN"); ok {
		c.Register.AutoLogin = v
	}
	if v, ok := getEnvBool("REGISTER_REQUIRE_VERIFICATION"); ok {
		c.Register.RequireVerification = v
	}

	// RATE
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvStr("RATE_WINDOW"); ok {
		c.Rate.Window = v
	}
	if v, ok := getEnvInt("RATE_MAX_REQUESTS"); ok {
		c.Rate.MaxRequests = v
	}
	if v, ok := getEnvInt("RATE_LOGIN_LIMIT"); ok {
		c.Rate.Login.Limit = v
	}
	if v, ok := getEnvStr("RATE_LOGIN_WINDOW"); ok {
		c.Rate.Login.Window = v
	}
	if v, ok := getEnvInt("RATE_CODE_LIMIT"); ok {
		c.Rate.Code.Limit = v
	}
	if v, ok := getEnvStr("RATE_CODE_WINDOW"); ok {
		c.Rate.Code.Window = v
	}
	if v, ok := getEnvInt("RATE_FORGOT_LIMIT"); ok {
		c.Rate.Forgot.Limit = v
	}
	if v, ok := getEnvStr("RATE_FORGOT_WINDOW"); ok {
		c.Rate.Forgot.Window = v
	}
	if v, ok := getEnvInt("RATE_REFRESH_LIMIT"); ok {
		c.Rate.Refresh.Limit = v
	}
	if v, ok := getEnvStr("RATE_REFRESH_WINDOW"); ok {
		c.Rate.Refresh.Window = v
	}

	// FLAGS
	if v, ok := getEnvBool("FLAGS_MIGRATE"); ok {
		c.Flags.Migrate = v
	}

	// SMTP
	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_USERNAME"); ok {
		c.SMTP.Username = v
	}
	if v, ok := getEnvStr("SMTP_PASSWORD"); ok {
		c.SMTP.Password = v
	}
	if v, ok := getEnvStr("SMTP_FROM"); ok {
		c.SMTP.From = v
	}
	if v, ok := getEnvStr("SMTP_TLS"); ok {
		c.SMTP.TLS = strings.ToLower(v)
	}
	if v, ok := getEnvBool("SMTP_INSECURE_SKIP_VERIFY"); ok {
		c.SMTP.InsecureSkipVerify = v
	}

	// SECURITY
	if v, ok := getEnvStr("SECRETBOX_MASTER_KEY"); ok {
		c.Security.MasterKey = v
	}
	if v, ok := getEnvInt("SECURITY_PASSWORD_POLICY_MIN_LENGTH"); ok {
		c.Security.PasswordPolicy.MinLength = v
	}
	if v, ok := getEnvBool("SECURITY_PASSWORD_POLICY_REQUIRE_UPPER"); ok {
		c.Security.PasswordPolicy.RequireUpper = v
	}
	if v, ok := getEnvBool("SECURITY_PASSWORD_POLICY_REQUIRE_LOWER"); ok {
		c.Security.PasswordPolicy.RequireLower = v
	}
	if v, ok := getEnvBool("SECURITY_PASSWORD_POLICY_REQUIRE_DIGIT"); ok {
		c.Security.PasswordPolicy.RequireDigit = v
	}
	if v, ok := getEnvBool("SECURITY_PASSWORD_POLICY_REQUIRE_SYMBOL"); ok {
		c.Security.PasswordPolicy.RequireSymbol = v
	}
	if v, ok := getEnvStr("SECURITY_PASSWORD_DENYLIST_PATH"); ok {
		c.Security.PasswordDenylistPath = strings.TrimSpace(v)
	}
}
