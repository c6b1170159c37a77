package config

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"

	"github.com/rtdetect/rtdetect/logging"
	"github.com/rtdetect/rtdetect/utils"
)

// Read reads a config from the given file. Environment variables referenced as $VAR or ${VAR}
// are expanded before parsing.
func Read(filePath string, logger logging.Logger) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read config %s", filePath)
	}
	cfg, err := FromReader(bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	logger.Debugw("config read", "path", filePath)
	return cfg, nil
}

// FromReader parses a JSON config on top of Default and validates the result. Keys that match
// no field are rejected.
func FromReader(r io.Reader) (*Config, error) {
	var raw map[string]interface{}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "cannot parse config")
	}

	cfg := Default()
	if err := utils.AttributeMap(raw).Decode(cfg); err != nil {
		return nil, errors.Wrap(err, "cannot decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
