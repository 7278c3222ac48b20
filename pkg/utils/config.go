package utils

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr       string
	SyncAddr   string
	NotifyAddr string

	JWTSecret  string
	JWTIssuer  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	Debug bool
}

// LoadConfig reads configuration from the environment, with a .env
// file as an optional source and dev defaults for everything else.
func LoadConfig() Config {
	// missing .env is fine; real env vars win either way
	_ = godotenv.Load()

	secret := os.Getenv("ANIMEHUB_JWT_SECRET")
	if secret == "" {
		// dev default (change for demo / production)
		secret = "dev-secret-change-me"
	}

	issuer := os.Getenv("ANIMEHUB_JWT_ISSUER")
	if issuer == "" {
		issuer = "animehub"
	}

	addr := os.Getenv("ANIMEHUB_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	syncAddr := os.Getenv("ANIMEHUB_SYNC_ADDR")
	if syncAddr == "" {
		syncAddr = ":7070"
	}

	notifyAddr := os.Getenv("ANIMEHUB_NOTIFY_ADDR")
	if notifyAddr == "" {
		notifyAddr = ":7071"
	}

	return Config{
		Addr:       addr,
		SyncAddr:   syncAddr,
		NotifyAddr: notifyAddr,
		JWTSecret:  secret,
		JWTIssuer:  issuer,
		AccessTTL:  durationEnv("ANIMEHUB_ACCESS_TTL_MINUTES", 25) * time.Minute,
		RefreshTTL: durationEnv("ANIMEHUB_REFRESH_TTL_MINUTES", 5*24*60) * time.Minute,
		Debug:      boolEnv("ANIMEHUB_DEBUG"),
	}
}

func durationEnv(key string, fallback int) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return time.Duration(fallback)
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return time.Duration(fallback)
	}
	return time.Duration(n)
}

func boolEnv(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}
