package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds application configuration loaded from environment variables and .env file.
type AppConfig struct {
	// Inventory database config (stores target descriptors and synchronized accounts)
	DBHost string
	DBPort int
	DBUser string
	DBPass string
	DBName string

	// Logging config
	LogLevel      string
	LogFile       string
	LogMaxSize    int // MB
	LogMaxBackups int
	LogMaxAge     int // days
	LogCompress   bool

	// Per-engine account exclusion rules. Keyed by engine identifier
	// (mysql, postgresql, sqlserver, oracle). Literal usernames and
	// wildcard patterns are kept separate so they can be compiled into
	// NOT IN / NOT LIKE predicate fragments.
	ExcludeUsers    map[string][]string
	ExcludePatterns map[string][]string

	// Consistency verifier config
	VerifySampleSize int // 0 = full table
}

// Cfg is the global application configuration instance.
var Cfg AppConfig

// LoadConfig loads and validates application configuration from .env file and environment variables.
func LoadConfig() error {
	err := godotenv.Load()
	if err != nil {
		// Use standard log here since logger is not initialized yet
		log.Printf("[WARN] .env file not found or cannot be loaded: %v", err)
	} else {
		log.Printf("[INFO] .env file loaded successfully")
	}

	Cfg.DBHost = getEnv("DB_HOST", "127.0.0.1")
	Cfg.DBUser = getEnv("DB_USER", "root")
	Cfg.DBPass = getEnv("DB_PASS", "")
	Cfg.DBName = getEnv("DB_NAME", "accountsync")

	portStr := getEnv("DB_PORT", "3306")
	portInt, _ := strconv.Atoi(portStr)
	Cfg.DBPort = portInt

	// Load logging config
	Cfg.LogLevel = getEnv("LOG_LEVEL", "INFO")
	Cfg.LogFile = getEnv("LOG_FILE", "/var/log/dbaccountsync/dbaccountsync.log")
	Cfg.LogMaxSize = getEnvInt("LOG_MAX_SIZE", 10)
	Cfg.LogMaxBackups = getEnvInt("LOG_MAX_BACKUPS", 3)
	Cfg.LogMaxAge = getEnvInt("LOG_MAX_AGE", 28)
	Cfg.LogCompress = getEnvBool("LOG_COMPRESS", true)

	// Load per-engine exclusion rules. Defaults cover each engine's
	// built-in system principals so a fresh install never syncs them.
	Cfg.ExcludeUsers = map[string][]string{
		"mysql": getEnvStringSlice("SYNC_EXCLUDE_USERS_MYSQL", []string{
			"mysql.infoschema",
			"mysql.session",
			"mysql.sys",
		}),
		"postgresql": getEnvStringSlice("SYNC_EXCLUDE_USERS_POSTGRESQL", []string{
			"postgres",
		}),
		"sqlserver": getEnvStringSlice("SYNC_EXCLUDE_USERS_SQLSERVER", []string{
			"sa",
			"public",
		}),
		"oracle": getEnvStringSlice("SYNC_EXCLUDE_USERS_ORACLE", []string{
			"SYS",
			"SYSTEM",
		}),
	}
	Cfg.ExcludePatterns = map[string][]string{
		"mysql":      getEnvStringSlice("SYNC_EXCLUDE_PATTERNS_MYSQL", nil),
		"postgresql": getEnvStringSlice("SYNC_EXCLUDE_PATTERNS_POSTGRESQL", []string{"pg_*"}),
		"sqlserver": getEnvStringSlice("SYNC_EXCLUDE_PATTERNS_SQLSERVER", []string{
			"##MS_*",
			"NT AUTHORITY\\*",
			"NT SERVICE\\*",
		}),
		"oracle": getEnvStringSlice("SYNC_EXCLUDE_PATTERNS_ORACLE", nil),
	}

	Cfg.VerifySampleSize = getEnvInt("VERIFY_SAMPLE_SIZE", 0)

	log.Printf("[INFO] Config loaded - DB: %s@%s:%d/%s, LogLevel: %s",
		Cfg.DBUser, Cfg.DBHost, Cfg.DBPort, Cfg.DBName, Cfg.LogLevel)

	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if boolVal, err := strconv.ParseBool(val); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

// getEnvStringSlice parses comma-separated environment variable into string slice
// Format: "item1,item2,item3" -> []string{"item1", "item2", "item3"}
func getEnvStringSlice(key string, defaultVal []string) []string {
	if val := os.Getenv(key); val != "" {
		items := strings.Split(val, ",")
		result := make([]string, 0, len(items))
		for _, item := range items {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return defaultVal
}
