package utils

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// LoadConfig reads an optional .env from dir into the process environment and
// lets viper pick up every variable for flag overrides.
func LoadConfig(dir string) {
	envFile := filepath.Join(dir, ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			logrus.Warnf("[CONFIG] could not load %s: %v", envFile, err)
		}
	}

	viper.AutomaticEnv()
}
