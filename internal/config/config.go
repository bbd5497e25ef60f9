package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendFirestore = "firestore"
	BackendMySQL     = "mysql"
	BackendMemory    = "memory"
)

// Config aggregates runtime configuration for both bots and supporting services.
type Config struct {
	BotToken      string
	AdminBotToken string
	AdminChatIDs  []int64

	StoreBackend             string
	FirestoreProjectID       string
	FirestoreCredentialsPath string
	MySQLDSN                 string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SessionTTL    time.Duration

	TonNetwork           string
	TonEndpoint          string
	TonAPIKey            string
	TonMnemonic          string
	CafeWalletAddress    string
	NftCollectionAddress string
	MintSimulationDelay  time.Duration
	NftMonitorEnabled    bool
	NftMonitorInterval   time.Duration

	AdminListenAddr string
	AdminUsername   string
	AdminPassword   string

	S3Endpoint      string
	S3Region        string
	S3AccessKey     string
	S3SecretKey     string
	S3Bucket        string
	S3PublicBaseURL string
	S3UsePathStyle  bool
	S3Prefix        string

	LogFile              string
	LogLevel             string
	RequestTimeout       time.Duration
	MaxConcurrentUpdates int
}

// Load reads configuration from environment variables, applying sane defaults.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	adminIDs, err := getInt64List("ADMIN_CHAT_IDS")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		BotToken:                 os.Getenv("TELEGRAM_BOT_TOKEN"),
		AdminBotToken:            os.Getenv("TELEGRAM_ADMIN_BOT_TOKEN"),
		AdminChatIDs:             adminIDs,
		StoreBackend:             strings.ToLower(getEnv("STORE_BACKEND", BackendFirestore)),
		FirestoreProjectID:       os.Getenv("FIRESTORE_PROJECT_ID"),
		FirestoreCredentialsPath: os.Getenv("FIRESTORE_CREDENTIALS_PATH"),
		MySQLDSN:                 os.Getenv("MYSQL_DSN"),
		RedisAddr:                os.Getenv("REDIS_ADDR"),
		RedisPassword:            os.Getenv("REDIS_PASSWORD"),
		RedisDB:                  getInt("REDIS_DB", 0),
		SessionTTL:               getDuration("SESSION_TTL_MINUTES", time.Minute, 60*time.Minute),
		TonNetwork:               strings.ToLower(getEnv("TON_NETWORK", "testnet")),
		TonEndpoint:              os.Getenv("TON_ENDPOINT"),
		TonAPIKey:                os.Getenv("TON_API_KEY"),
		TonMnemonic:              os.Getenv("TON_BOT_MNEMONIC"),
		CafeWalletAddress:        os.Getenv("TON_CAFE_WALLET_ADDRESS"),
		NftCollectionAddress:     os.Getenv("TON_NFT_COLLECTION_ADDRESS"),
		MintSimulationDelay:      getDuration("MINT_SIMULATION_DELAY_MS", time.Millisecond, 2*time.Second),
		NftMonitorEnabled:        getBool("NFT_MONITOR_ENABLED", true),
		NftMonitorInterval:       getDuration("NFT_MONITOR_INTERVAL_SECONDS", time.Second, 30*time.Second),
		AdminListenAddr:          getEnv("ADMIN_LISTEN_ADDR", ":8080"),
		AdminUsername:            getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:            getEnv("ADMIN_PASSWORD", "change-me"),
		S3Endpoint:               getEnv("S3_ENDPOINT", ""),
		S3Region:                 os.Getenv("S3_REGION"),
		S3AccessKey:              os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:              os.Getenv("S3_SECRET_KEY"),
		S3Bucket:                 os.Getenv("S3_BUCKET"),
		S3PublicBaseURL:          os.Getenv("S3_PUBLIC_BASE_URL"),
		S3UsePathStyle:           getBool("S3_USE_PATH_STYLE", false),
		S3Prefix:                 getEnv("S3_PREFIX", "nft-metadata"),
		LogFile:                  os.Getenv("LOG_FILE"),
		LogLevel:                 getEnv("LOG_LEVEL", "info"),
		RequestTimeout:           getDuration("HTTP_TIMEOUT_SECONDS", time.Second, 30*time.Second),
		MaxConcurrentUpdates:     getInt("MAX_CONCURRENT_UPDATES", 16),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var missing, invalid []string
	if c.BotToken == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if c.AdminBotToken != "" && len(c.AdminChatIDs) == 0 {
		missing = append(missing, "ADMIN_CHAT_IDS")
	}

	switch c.StoreBackend {
	case BackendFirestore:
		if c.FirestoreProjectID == "" {
			missing = append(missing, "FIRESTORE_PROJECT_ID")
		}
	case BackendMySQL:
		if c.MySQLDSN == "" {
			missing = append(missing, "MYSQL_DSN")
		}
	case BackendMemory:
	default:
		invalid = append(invalid, "STORE_BACKEND="+c.StoreBackend)
	}

	if c.TonNetwork != "mainnet" && c.TonNetwork != "testnet" {
		invalid = append(invalid, "TON_NETWORK="+c.TonNetwork)
	}
	if c.SessionTTL <= 0 {
		invalid = append(invalid, "SESSION_TTL_MINUTES")
	}
	if c.MaxConcurrentUpdates <= 0 {
		invalid = append(invalid, "MAX_CONCURRENT_UPDATES")
	}

	if c.S3Bucket != "" {
		for key, v := range map[string]string{
			"S3_REGION":          c.S3Region,
			"S3_ACCESS_KEY":      c.S3AccessKey,
			"S3_SECRET_KEY":      c.S3SecretKey,
			"S3_PUBLIC_BASE_URL": c.S3PublicBaseURL,
		} {
			if v == "" {
				missing = append(missing, key)
			}
		}
	}

	var errs []error
	if len(missing) > 0 {
		slices.Sort(missing)
		errs = append(errs, fmt.Errorf("missing required environment variables: %v", missing))
	}
	if len(invalid) > 0 {
		errs = append(errs, fmt.Errorf("invalid environment variables: %v", invalid))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// getDuration reads an integer count of unit.
func getDuration(key string, unit, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return time.Duration(n) * unit
}

func getInt64List(key string) ([]int64, error) {
	var out []int64
	for _, part := range strings.Split(os.Getenv(key), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", key, err)
		}
		out = append(out, id)
	}
	return out, nil
}

// loadEnvFile applies the first env file found. A missing file is not an error.
func loadEnvFile() error {
	candidates := []string{}
	if custom, ok := os.LookupEnv("CONFIG_ENV_PATH"); ok && custom != "" {
		candidates = append(candidates, custom)
	}
	candidates = append(candidates,
		filepath.Join("configs", ".env"),
		".env",
	)

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("access env file %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		if err := godotenv.Overload(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	return nil
}
