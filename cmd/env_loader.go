package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// loadedEnvFiles lists the files the last loadEnvFiles call read.
var loadedEnvFiles []string

var envFiles = []string{
	".env",
	".env.local",
}

// loadEnvFiles loads .env, .env.local and then PATCHSMITH_ENV_FILE when set.
// godotenv never overrides a variable that is already set, so the real
// environment wins over every file.
func loadEnvFiles() {
	loadedEnvFiles = nil

	files := envFiles
	if extra := os.Getenv("PATCHSMITH_ENV_FILE"); extra != "" {
		files = append(files[:len(files):len(files)], extra)
	}

	for _, filename := range files {
		if filename == "" {
			continue
		}

		if _, err := os.Stat(filename); err != nil {
			if !os.IsNotExist(err) {
				fmt.Fprintf(os.Stderr, "warning: unable to read %s: %v\n", filename, err)
			}
			continue
		}

		if err := godotenv.Load(filename); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", filename, err)
			continue
		}
		loadedEnvFiles = append(loadedEnvFiles, filename)
	}
}
