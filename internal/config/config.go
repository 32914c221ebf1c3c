package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds environment-driven configuration.
type Config struct {
	Addr           string
	Environment    string
	DatabaseURL    string
	JWTSecret      string
	JWTTTL         time.Duration
	LogLevel       string
	AllowedOrigins string

	RedisAddr       string
	RedisPassword   string
	ProductCacheTTL time.Duration

	KafkaBrokers []string
	OrderTopic   string

	RazorpayKeyID          string
	RazorpayKeySecret      string
	RazorpayBaseURL        string
	Currency               string
	VerifyPaymentSignature bool

	ImageHostURL   string
	ImageHostKey   string
	MaxUploadBytes int64

	PendingOrderTTL    time.Duration
	OrderSweepInterval time.Duration
	StrictPricing      bool

	AuthRatePerMinute int
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		Addr:           getEnv("STORE_ADDR", ":8080"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		JWTTTL:         getDuration("JWT_TTL", 72*time.Hour),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: getEnv("CORS_ORIGINS", "*"),

		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		ProductCacheTTL: getDuration("PRODUCT_CACHE_TTL", 10*time.Minute),

		KafkaBrokers: getList("KAFKA_BROKERS"),
		OrderTopic:   getEnv("ORDER_TOPIC", "order-events"),

		RazorpayKeyID:          os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret:      os.Getenv("RAZORPAY_KEY_SECRET"),
		RazorpayBaseURL:        getEnv("RAZORPAY_BASE_URL", "https://api.razorpay.com/v1"),
		Currency:               getEnv("CURRENCY", "INR"),
		VerifyPaymentSignature: getBool("VERIFY_PAYMENT_SIGNATURE", false),

		ImageHostURL:   getEnv("IMAGE_HOST_URL", "https://api.imgbb.com/1/upload"),
		ImageHostKey:   os.Getenv("IMAGE_HOST_KEY"),
		MaxUploadBytes: int64(getInt("MAX_UPLOAD_BYTES", 5*1024*1024)),

		PendingOrderTTL:    getDuration("PENDING_ORDER_TTL", 0),
		OrderSweepInterval: getDuration("ORDER_SWEEP_INTERVAL", 5*time.Minute),
		StrictPricing:      getBool("STRICT_PRICING", false),

		AuthRatePerMinute: getInt("AUTH_RATE_PER_MINUTE", 30),
	}
}

// IsProduction reports whether the service runs with production settings.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	out := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
