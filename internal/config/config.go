package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends for comments
const (
	StoreFirestore = "firestore"
	StoreMemory    = "memory"
)

// Identity providers for bearer tokens
const (
	AuthProviderJWT      = "jwt"
	AuthProviderFirebase = "firebase"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	ServerPort string
	LogLevel   string

	JWTSecret    string
	AuthProvider string

	AccessTokenMaxAge  int
	RefreshTokenMaxAge int

	StoreBackend string

	FirebaseProjectID       string
	FirebaseClientEmail     string
	FirebasePrivateKey      string
	FirebaseCredentialsFile string

	RedisURL         string
	BrowseSessionTTL time.Duration

	CommentPageSize    int
	CommentMaxPageSize int

	WorkerCount int

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string

	DefaultAvatarURL string
	DefaultAvatarKey string
}

func LoadConfig() (*Config, error) {
	// A missing .env is fine; the process environment is used as-is.
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBSSLMode:  envOr("DB_SSLMODE", "require"),

		ServerPort: envOr("SERVER_PORT", "8080"),
		LogLevel:   envOr("LOG_LEVEL", "info"),

		JWTSecret:    os.Getenv("JWT_SECRET"),
		AuthProvider: envOr("AUTH_PROVIDER", AuthProviderJWT),

		AccessTokenMaxAge:  positiveIntOr("ACCESS_TOKEN_MAX_AGE", 900),
		RefreshTokenMaxAge: positiveIntOr("REFRESH_TOKEN_MAX_AGE", 2592000),

		StoreBackend: envOr("STORE_BACKEND", StoreFirestore),

		FirebaseProjectID:       os.Getenv("FIREBASE_PROJECT_ID"),
		FirebaseClientEmail:     os.Getenv("FIREBASE_CLIENT_EMAIL"),
		FirebasePrivateKey:      os.Getenv("FIREBASE_PRIVATE_KEY"),
		FirebaseCredentialsFile: os.Getenv("FIREBASE_CREDENTIALS_FILE"),

		RedisURL:         os.Getenv("REDIS_URL"),
		BrowseSessionTTL: time.Duration(positiveIntOr("BROWSE_SESSION_TTL", 1800)) * time.Second,

		CommentPageSize:    positiveIntOr("COMMENT_PAGE_SIZE", 20),
		CommentMaxPageSize: positiveIntOr("COMMENT_MAX_PAGE_SIZE", 50),

		WorkerCount: positiveIntOr("WORKER_COUNT", 2),

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicURL:       os.Getenv("R2_PUBLIC_URL"),

		DefaultAvatarURL: os.Getenv("DEFAULT_AVATAR_URL"),
		DefaultAvatarKey: os.Getenv("DEFAULT_AVATAR_KEY"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreFirestore, StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	switch c.AuthProvider {
	case AuthProviderJWT:
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required")
		}
	case AuthProviderFirebase:
	default:
		return fmt.Errorf("unknown AUTH_PROVIDER %q", c.AuthProvider)
	}

	if (c.StoreBackend == StoreFirestore || c.AuthProvider == AuthProviderFirebase) && !c.FirebaseConfigured() {
		return fmt.Errorf("firebase credentials are required for STORE_BACKEND=%s AUTH_PROVIDER=%s", c.StoreBackend, c.AuthProvider)
	}

	if c.CommentPageSize > c.CommentMaxPageSize {
		return fmt.Errorf("COMMENT_PAGE_SIZE (%d) exceeds COMMENT_MAX_PAGE_SIZE (%d)", c.CommentPageSize, c.CommentMaxPageSize)
	}
	return nil
}

// FirebaseConfigured reports whether credentials for the Firebase Admin SDK are present.
func (c *Config) FirebaseConfigured() bool {
	if c.FirebaseCredentialsFile != "" {
		return true
	}
	return c.FirebaseProjectID != "" && c.FirebaseClientEmail != "" && c.FirebasePrivateKey != ""
}

// R2Configured reports whether avatar uploads can be enabled.
func (c *Config) R2Configured() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" &&
		c.R2BucketName != "" && c.R2PublicURL != ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func positiveIntOr(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
