package configuration

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// ConfigPath returns the config file location: $IGD_CONFIG if set,
// otherwise <user config dir>/igdctl/config.yaml. It is empty when neither
// can be determined.
func ConfigPath() string {
	if confPath := os.Getenv("IGD_CONFIG"); confPath != "" {
		return confPath
	}

	ucd, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(ucd, "igdctl", "config.yaml")
}

// ReadConfig loads the config file at path. A missing file yields the zero
// configuration.
func ReadConfig(path string) (*Root, error) {
	var config Root
	if path == "" {
		return &config, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user config file: %w", err)
	}

	if err = yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user config file: %w", err)
	}

	return &config, nil
}

type section interface {
	init()
	setFlags(*cobra.Command, *pflag.FlagSet)
	mergeFlags()
	validate() error
}
