package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                    string
	Env                     string
	FirebaseCredentialsPath string
	DatabaseURL             string
	SecretKey               string
	JWTSecret               string
	MongoURI                string
	MongoDatabase           string
	StorePath               string
	APIBaseURL              string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, assuming environment variables are set.")
	}

	return &Config{
		Port:                    getEnv("PORT", "10000"),
		Env:                     getEnv("ENV", "development"),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		DatabaseURL:             getEnv("DATABASE_URL", ""),
		SecretKey:               getEnv("SECRET_KEY", ""),
		JWTSecret:               getEnv("JWT_SECRET", "supersecretjwtkey"),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDatabase:           getEnv("MONGO_DATABASE", "zange"),
		StorePath:               getEnv("ZANGE_STORE", defaultStorePath()),
		APIBaseURL:              getEnv("ZANGE_API", "http://localhost:10000"),
	}
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "zange-store.json"
	}
	return dir + "/zange/store.json"
}
