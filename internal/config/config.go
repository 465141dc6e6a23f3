package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port        string
	DatabaseURL string
	JWTSecret   string

	GeminiKey     string
	GeminiBaseURL string
	ImageModel    string
	VisionModel   string

	RoundSeconds int
}

func FromEnv() Config {
	c := Config{}
	c.Port = getenv("PORT", "8080")
	c.DatabaseURL = os.Getenv("DATABASE_URL")
	c.JWTSecret = os.Getenv("JWT_SECRET")
	c.GeminiKey = os.Getenv("GEMINI_API_KEY")
	c.GeminiBaseURL = os.Getenv("GEMINI_BASE_URL")
	c.ImageModel = getenv("IMAGE_MODEL", "gemini-2.5-flash-image")
	c.VisionModel = getenv("VISION_MODEL", "gemini-3-flash-preview")
	c.RoundSeconds = getint("ROUND_SECONDS", 75)
	return c
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
