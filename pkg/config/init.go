package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// configTemplate is the commented starter config written by InitConfig. It
// documents every section with its default value so a new user can see
// what's tunable without consulting docs.
const configTemplate = `# espflash Configuration File
#
# Flags on the command line always take precedence over this file, which
# in turn takes precedence over the built-in defaults shown below.

logging:
  level: "INFO"   # DEBUG, INFO, WARN, ERROR
  format: "text"  # text, json
  output: "stdout" # stdout, stderr, or a file path

serial:
  port: ""               # e.g. /dev/ttyUSB0; required unless passed via --port
  baud: 115200
  reset_strategy: "classic" # classic (2-step) or native-usb (5-step)
  timeouts:
    sync: 500ms
    command: 2s
    flash_data: 5s
    mem_data: 1s
    handshake: 2s

session:
  progress_log_interval: 500ms

metrics:
  enabled: false
  port: 9090
`

// InitConfig writes a starter configuration file to the default location
// ($XDG_CONFIG_HOME/espflash/config.yaml or ~/.config/espflash/config.yaml).
// It returns the path written. If force is false and a file already exists
// there, it returns an error instead of overwriting it.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a starter configuration file to an explicit path.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(configTemplate), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
