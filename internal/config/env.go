package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Environment variables overriding file settings.
const (
	envConfig         = "LWO2MESH_CONFIG"
	envLogLevel       = "LWO2MESH_LOG_LEVEL"
	envLogFile        = "LWO2MESH_LOG_FILE"
	envStringEncoding = "LWO2MESH_STRING_ENCODING"
	envWinding        = "LWO2MESH_WINDING"
	envWeightMap      = "LWO2MESH_WEIGHT_MAP"
	envWorkers        = "LWO2MESH_WORKERS"
	envTimeout        = "LWO2MESH_TIMEOUT"
	envExtensions     = "LWO2MESH_EXTENSIONS"
)

// applyEnv applies environment overrides to the config.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str(envLogLevel, &cfg.Logging.Level)
	str(envLogFile, &cfg.Logging.LogFile)
	str(envStringEncoding, &cfg.Decode.StringEncoding)
	str(envWinding, &cfg.Mesh.Winding)
	str(envWeightMap, &cfg.Mesh.WeightMap)

	if v, ok := lookup(envWorkers); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envWorkers, err)
		}
		cfg.Pipeline.Workers = n
	}
	if v, ok := lookup(envTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envTimeout, err)
		}
		cfg.Pipeline.Timeout = d
	}
	if v, ok := lookup(envExtensions); ok && v != "" {
		cfg.Pipeline.Extensions = strings.Split(v, ",")
	}
	return nil
}
