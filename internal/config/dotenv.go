package config

import "github.com/joho/godotenv"

// LoadDotEnv reads .env files into the process environment.
// Variables already set in the environment win over the file.
func LoadDotEnv(paths ...string) error {
	return godotenv.Load(paths...)
}
