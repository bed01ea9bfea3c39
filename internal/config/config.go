package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"

	"github.com/vbonduro/feestatement/internal/domain"
)

const (
	defaultProfitMargin = 20.0
	defaultSessionTTL   = 2 * time.Hour
)

type Config struct {
	ListenAddr          string
	DBPath              string
	CachePath           string
	DefaultProjectType  domain.ProjectType
	DefaultProfitMargin float64
	SessionTTL          time.Duration
	CompanyName         string
	LogLevel            string
	LogFormat           string
	LogFile             string
}

// Load reads configuration from the environment. Values missing from the
// environment are looked up in envFiles (".env" when none are given), which
// may be absent. Unparseable numbers and durations fall back to defaults.
func Load(envFiles ...string) *Config {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	file := map[string]string{}
	for _, name := range envFiles {
		vals, err := godotenv.Read(name)
		if err != nil {
			continue
		}
		for k, v := range vals {
			if _, seen := file[k]; !seen {
				file[k] = v
			}
		}
	}
	getEnv := func(key, defaultVal string) string {
		if val, exists := os.LookupEnv(key); exists {
			return val
		}
		if val, exists := file[key]; exists {
			return val
		}
		return defaultVal
	}

	pt, ok := domain.ParseProjectType(getEnv("DEFAULT_PROJECT_TYPE", string(domain.ProjectTypeBarndominium)))
	if !ok {
		pt = domain.ProjectTypeBarndominium
	}

	margin, err := cast.ToFloat64E(getEnv("DEFAULT_PROFIT_MARGIN", ""))
	if err != nil || margin < 0 {
		margin = defaultProfitMargin
	}

	ttl, err := cast.ToDurationE(getEnv("SESSION_TTL", ""))
	if err != nil || ttl <= 0 {
		ttl = defaultSessionTTL
	}

	return &Config{
		ListenAddr:          getEnv("LISTEN_ADDR", ":8080"),
		DBPath:              getEnv("DB_PATH", "/data/feestatement.db"),
		CachePath:           getEnv("CACHE_PATH", "/data/statements"),
		DefaultProjectType:  pt,
		DefaultProfitMargin: margin,
		SessionTTL:          ttl,
		CompanyName:         getEnv("COMPANY_NAME", "Statement"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "json"),
		LogFile:             getEnv("LOG_FILE", ""),
	}
}
