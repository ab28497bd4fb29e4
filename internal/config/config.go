package config

import "os"

type Config struct {
	Port                string
	Env                 string
	MongoURI            string
	MongoDB             string
	StripeSecretKey     string
	StripeWebhookSecret string
	FrontendURL         string
	KafkaBroker         string
}

func Load() *Config {
	return &Config{
		Port:                getEnvOrDefault("PORT", "5000"),
		Env:                 getEnvOrDefault("ENV", "development"),
		MongoURI:            getEnvOrDefault("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDB:             getEnvOrDefault("MONGO_DB", "stripe_checkout"),
		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		FrontendURL:         getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"),
		KafkaBroker:         getEnvOrDefault("KAFKA_BROKER", "localhost:9092"),
	}
}

func (c *Config) Production() bool { return c.Env == "production" }

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
