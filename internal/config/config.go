package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port   string
	APIKey string

	LogLevel  string
	LogFormat string

	MongoURI      string
	MongoDatabase string

	// empty RedisAddr falls back to an in-process lock
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// empty RabbitURL disables event publishing
	RabbitURL      string
	RabbitExchange string

	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string
	LLMTimeout time.Duration

	ConversationTimeout time.Duration
	LockTTL             time.Duration

	InfobipURL          string
	InfobipClientID     string
	InfobipClientSecret string
	WhatsAppNumber      string

	TwilioAuthToken string
	// TwilioReplyTimeout bounds the inline reply; Twilio gives up after 15s.
	TwilioReplyTimeout time.Duration
}

func LoadEnv() error {
	err := godotenv.Load(".env")
	if err != nil {
		log.Printf("Could not load .env file: %v", err)
		return err
	}
	return nil
}

func GetEnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func Load() Config {
	return Config{
		Port:   GetEnvOrDefault("PORT", "8080"),
		APIKey: os.Getenv("API_KEY"),

		LogLevel:  GetEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: GetEnvOrDefault("LOG_FORMAT", "json"),

		MongoURI:      GetEnvOrDefault("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: GetEnvOrDefault("MONGODB_DATABASE", "barrioshop"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),

		RabbitURL:      os.Getenv("RABBIT_URL"),
		RabbitExchange: GetEnvOrDefault("RABBIT_EXCHANGE", "barrioshop.events"),

		LLMBaseURL: GetEnvOrDefault("LLM_BASE_URL", "https://api.anthropic.com/v1"),
		LLMAPIKey:  os.Getenv("LLM_API_KEY"),
		LLMModel:   GetEnvOrDefault("LLM_MODEL", "claude-sonnet-4"),
		LLMTimeout: getDuration("LLM_TIMEOUT", 60*time.Second),

		ConversationTimeout: getDuration("CONVERSATION_TIMEOUT", 5*time.Minute),
		LockTTL:             getDuration("LOCK_TTL", 30*time.Second),

		InfobipURL:          os.Getenv("INFOBIP_URL"),
		InfobipClientID:     os.Getenv("INFOBIP_CLIENT_ID"),
		InfobipClientSecret: os.Getenv("INFOBIP_CLIENT_SECRET"),
		WhatsAppNumber:      os.Getenv("WHATSAPP_PHONE_NUMBER"),

		TwilioAuthToken:    os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioReplyTimeout: getDuration("TWILIO_REPLY_TIMEOUT", 12*time.Second),
	}
}

// Validate reports settings the server cannot start without.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("API_KEY is not set")
	}
	if c.LLMAPIKey == "" {
		return fmt.Errorf("LLM_API_KEY is not set")
	}
	return nil
}
