package config

import "github.com/joho/godotenv"

// LoadEnv loads a .env file from the working directory into the process
// environment. Missing files surface as os.IsNotExist so callers can treat
// them as optional.
func LoadEnv() error {
	return godotenv.Load()
}
