package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabasePath  string
	ServerAddress string
	Currency      string

	// Office and banking identity printed on statements
	OfficeName  string
	OfficePhone string
	BankName    string
	BankAccount string
	BankHolder  string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment defaults")
	}

	return &Config{
		DatabasePath:  getEnv("DATABASE_PATH", "./condo-billing.db"),
		ServerAddress: getEnv("SERVER_ADDRESS", ":8081"),
		Currency:      getEnv("CURRENCY", "KRW"),
		OfficeName:    getEnv("OFFICE_NAME", "Management Office"),
		OfficePhone:   getEnv("OFFICE_PHONE", ""),
		BankName:      getEnv("BANK_NAME", ""),
		BankAccount:   getEnv("BANK_ACCOUNT", ""),
		BankHolder:    getEnv("BANK_HOLDER", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
