package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"grammarls/internal/convert"
	"grammarls/internal/languagetool"
)

var ErrUnknownFormat = errors.New("unknown config file format")

type Config struct {
	LTEnabled         bool          `json:"lt_enabled" yaml:"lt_enabled" toml:"lt_enabled"`
	LTHostname        string        `json:"lt_api_hostname" yaml:"lt_api_hostname" toml:"lt_api_hostname"`
	LTPort            string        `json:"lt_api_port" yaml:"lt_api_port" toml:"lt_api_port"`
	Language          string        `json:"language" yaml:"language" toml:"language"`
	MotherTongue      string        `json:"mother_tongue" yaml:"mother_tongue" toml:"mother_tongue"`
	EnabledRules      []string      `json:"enabled_rules" yaml:"enabled_rules" toml:"enabled_rules"`
	DisabledRules     []string      `json:"disabled_rules" yaml:"disabled_rules" toml:"disabled_rules"`
	RequestsPerSecond float64       `json:"requests_per_second" yaml:"requests_per_second" toml:"requests_per_second"`
	MaxBatchLength    int           `json:"max_batch_length" yaml:"max_batch_length" toml:"max_batch_length"`
	Concurrency       int           `json:"concurrency" yaml:"concurrency" toml:"concurrency"`
	CheckOnOpen       bool          `json:"check_on_open" yaml:"check_on_open" toml:"check_on_open"`
	CheckOnSave       bool          `json:"check_on_save" yaml:"check_on_save" toml:"check_on_save"`
	CompletionEnabled bool          `json:"completion_enabled" yaml:"completion_enabled" toml:"completion_enabled"`
	WordList          string        `json:"word_list" yaml:"word_list" toml:"word_list"`
	DictionaryDB      string        `json:"dictionary_db" yaml:"dictionary_db" toml:"dictionary_db"`
	SdcvDataDir       string        `json:"sdcv_data_dir" yaml:"sdcv_data_dir" toml:"sdcv_data_dir"`
	RulesFile         string        `json:"rules_file" yaml:"rules_file" toml:"rules_file"`
	Rules             convert.Rules `json:"rules" yaml:"rules" toml:"rules"`
	CompactInterval   int           `json:"compact_interval_seconds" yaml:"compact_interval_seconds" toml:"compact_interval_seconds"`
}

var defaultConfig = Config{
	LTEnabled:         true,
	LTHostname:        "http://127.0.0.1",
	LTPort:            "8081",
	Language:          languagetool.DefaultLanguage,
	RequestsPerSecond: languagetool.DefaultRequestsPerSecond,
	MaxBatchLength:    convert.DefaultMaxLength,
	Concurrency:       4,
	CheckOnOpen:       true,
	CheckOnSave:       true,
	CompactInterval:   60,
}

func Default() Config {
	return defaultConfig
}

func Load(v any) (Config, error) {
	cfg := defaultConfig

	data, err := json.Marshal(v)
	if err != nil {
		return Config{}, fmt.Errorf("failed to marshal source: %w", err)
	}

	// only fields present in src will overwrite.
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal into Config: %w", err)
	}

	return cfg, nil
}

// LoadFromJSON reads JSON from r into a Config.
func LoadFromJSON(r io.Reader) (Config, error) {
	cfg := defaultConfig

	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadFile reads a .json, .yaml/.yml or .toml file over the defaults.
func LoadFile(path string) (Config, error) {
	cfg := defaultConfig
	if err := decodeFile(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Merge decodes a file over cfg, so file values override cfg.
func (cfg Config) Merge(path string) (Config, error) {
	if err := decodeFile(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, v)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, v)
	case ".toml":
		err = toml.NewDecoder(bytes.NewReader(data)).Decode(v)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// BaseURL joins the LanguageTool host name and port.
func (cfg Config) BaseURL() string {
	host := strings.TrimRight(cfg.LTHostname, "/")
	if cfg.LTPort == "" {
		return host
	}
	return host + ":" + cfg.LTPort
}

func (cfg Config) LanguageTool() languagetool.Config {
	return languagetool.Config{
		BaseURL:           cfg.BaseURL(),
		Language:          cfg.Language,
		MotherTongue:      cfg.MotherTongue,
		EnabledRules:      cfg.EnabledRules,
		DisabledRules:     cfg.DisabledRules,
		RequestsPerSecond: cfg.RequestsPerSecond,
	}
}

func (cfg Config) CompactEvery() time.Duration {
	if cfg.CompactInterval <= 0 {
		return time.Duration(defaultConfig.CompactInterval) * time.Second
	}
	return time.Duration(cfg.CompactInterval) * time.Second
}
