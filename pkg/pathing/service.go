package pathing

import (
	"log"
	"os"
	"path/filepath"
)

// Ensure directories exist on startup
func init() {
	// Directories that must exist:
	dirs := []string{
		GetDataDir(),
	}

	// Create all directories
	for _, dir := range dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			err := os.MkdirAll(dir, 0755)
			if err != nil {
				log.Printf("Warning: could not create %s: %v", dir, err)
			}
		}
	}
}

func GetMeterDbPath() string {
	return filepath.Join(GetDataDir(), "dws7612.db")
}

// DWS7612_DATA_DIR overrides the default for tests and
// non-root development runs.
func GetDataDir() string {
	if dir := os.Getenv("DWS7612_DATA_DIR"); dir != "" {
		return dir
	}
	return "/var/lib/dws7612"
}

// DWS7612_CONFIG_DIR overrides the default.
func GetConfigDir() string {
	if dir := os.Getenv("DWS7612_CONFIG_DIR"); dir != "" {
		return dir
	}
	return "/etc/dws7612"
}
