package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	HTTPAddress   string
	VapiAPIURL    string
	VapiWebToken  string
	VapiServerKey string
}

// Load reads environment variables and returns Config with sane defaults.
// The token fallbacks mirror what the hosted dashboard hands out: a dedicated
// web token and server key when configured, otherwise the single VAPI_API_KEY
// serves both roles.
func Load() Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file")
	}

	addr := os.Getenv("HTTP_ADDRESS")
	if addr == "" {
		addr = ":8080"
	}

	apiURL := os.Getenv("VAPI_API_URL")
	if apiURL == "" {
		apiURL = "https://api.vapi.ai"
	}

	webToken := firstEnv("VAPI_WEB_TOKEN", "VAPI_API_KEY")
	if webToken == "" {
		log.Println("Warning: VAPI_WEB_TOKEN not set - calls cannot be started")
	}

	serverKey := firstEnv("VAPI_SERVER_API_KEY", "VAPI_API_KEY")
	if serverKey == "" {
		log.Println("Warning: VAPI_SERVER_API_KEY not set - post-call enrichment will not work")
	}

	log.Printf("config: HTTP_ADDRESS=%s VAPI_API_URL=%s", addr, apiURL)
	return Config{
		HTTPAddress:   addr,
		VapiAPIURL:    apiURL,
		VapiWebToken:  webToken,
		VapiServerKey: serverKey,
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
