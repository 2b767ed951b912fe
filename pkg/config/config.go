package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"dndstake/pkg/network"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

const ConfigFileName = ".dndstake.json"

// DefaultPrivateKeyEnv names the environment variable holding the signing key.
const DefaultPrivateKeyEnv = "DNDSTAKE_PRIVATE_KEY"

// ValidatorMeta names a validator address for display.
type ValidatorMeta struct {
	Address string `json:"address" yaml:"address"`
	Name    string `json:"name" yaml:"name"`
}

// ContractsConfig holds the system contract addresses.
type ContractsConfig struct {
	Consensus       string `json:"consensus" yaml:"consensus"`
	LegacyConsensus string `json:"legacy_consensus,omitempty" yaml:"legacy_consensus,omitempty"`
	BlockReward     string `json:"block_reward" yaml:"block_reward"`
}

// AnalyticsConfig holds GA4 Measurement Protocol credentials.
type AnalyticsConfig struct {
	MeasurementID string `json:"measurement_id,omitempty" yaml:"measurement_id,omitempty"`
	APISecret     string `json:"api_secret,omitempty" yaml:"api_secret,omitempty"`
	ClientID      string `json:"client_id,omitempty" yaml:"client_id,omitempty"`
}

// Enabled reports whether events should be sent.
func (a AnalyticsConfig) Enabled() bool {
	return a.MeasurementID != "" && a.APISecret != ""
}

// Config is the full dashboard configuration.
type Config struct {
	Account             string          `json:"account,omitempty" yaml:"account,omitempty"`
	RPCURLs             []string        `json:"rpc_urls,omitempty" yaml:"rpc_urls,omitempty"`
	ChainID             int64           `json:"chain_id,omitempty" yaml:"chain_id,omitempty"`
	Contracts           ContractsConfig `json:"contracts" yaml:"contracts"`
	Validators          []ValidatorMeta `json:"validators,omitempty" yaml:"validators,omitempty"`
	SelectedValidator   string          `json:"selected_validator,omitempty" yaml:"selected_validator,omitempty"`
	PollIntervalSeconds int             `json:"poll_interval_seconds" yaml:"poll_interval_seconds"`
	DisplayDecimals     int             `json:"display_decimals" yaml:"display_decimals"`
	PrivateKeyEnv       string          `json:"private_key_env,omitempty" yaml:"private_key_env,omitempty"`
	LogFile             string          `json:"log_file,omitempty" yaml:"log_file,omitempty"`
	Analytics           AnalyticsConfig `json:"analytics" yaml:"analytics"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		RPCURLs:             []string{network.Supported().RPC},
		PollIntervalSeconds: 10,
		DisplayDecimals:     2,
		PrivateKeyEnv:       DefaultPrivateKeyEnv,
	}
}

// PollInterval returns the block-number poll period.
func (c Config) PollInterval() time.Duration {
	if c.PollIntervalSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// ValidatorNames maps lowercased validator addresses to display names.
func (c Config) ValidatorNames() map[string]string {
	names := make(map[string]string, len(c.Validators))
	for _, v := range c.Validators {
		names[strings.ToLower(v.Address)] = v.Name
	}
	return names
}

// Validate checks the fields the dashboard cannot run without.
func (c Config) Validate() []error {
	var errs []error
	if len(c.RPCURLs) == 0 {
		errs = append(errs, fmt.Errorf("no RPC URLs configured"))
	}
	for i, u := range c.RPCURLs {
		if strings.TrimSpace(u) == "" {
			errs = append(errs, fmt.Errorf("RPC URL at index %d is empty", i))
		}
	}
	if c.Account != "" && !common.IsHexAddress(c.Account) {
		errs = append(errs, fmt.Errorf("account %q is not a valid address", c.Account))
	}
	for name, addr := range map[string]string{
		"consensus":        c.Contracts.Consensus,
		"legacy_consensus": c.Contracts.LegacyConsensus,
		"block_reward":     c.Contracts.BlockReward,
	} {
		if addr != "" && !common.IsHexAddress(addr) {
			errs = append(errs, fmt.Errorf("contract %s %q is not a valid address", name, addr))
		}
	}
	for i, v := range c.Validators {
		if !common.IsHexAddress(v.Address) {
			errs = append(errs, fmt.Errorf("validator at index %d has invalid address %q", i, v.Address))
		}
	}
	return errs
}

func GetConfigPath(customPath string) (string, error) {
	if customPath != "" {
		return customPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigFileName), nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func LoadConfigFromFile(path string) (Config, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, err
	}
	defer func() { _ = f.Close() }()
	if isYAML(path) {
		return LoadYAMLConfig(f)
	}
	return LoadConfig(f)
}

// fileConfig mirrors Config with pointers so missing keys keep their defaults.
type fileConfig struct {
	Account             string          `json:"account" yaml:"account"`
	RPCURLs             []string        `json:"rpc_urls" yaml:"rpc_urls"`
	RPCURL              string          `json:"rpc_url" yaml:"rpc_url"` // Legacy
	ChainID             int64           `json:"chain_id" yaml:"chain_id"`
	Contracts           ContractsConfig `json:"contracts" yaml:"contracts"`
	Validators          json.RawMessage `json:"validators" yaml:"-"`
	YAMLValidators      []ValidatorMeta `json:"-" yaml:"validators"`
	SelectedValidator   string          `json:"selected_validator" yaml:"selected_validator"`
	PollIntervalSeconds *int            `json:"poll_interval_seconds" yaml:"poll_interval_seconds"`
	DisplayDecimals     *int            `json:"display_decimals" yaml:"display_decimals"`
	PrivateKeyEnv       string          `json:"private_key_env" yaml:"private_key_env"`
	LogFile             string          `json:"log_file" yaml:"log_file"`
	Analytics           AnalyticsConfig `json:"analytics" yaml:"analytics"`
}

func LoadConfig(r io.Reader) (Config, error) {
	var fc fileConfig
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return Config{}, err
	}

	var validators []ValidatorMeta
	if len(fc.Validators) > 0 {
		// Try unmarshal as []ValidatorMeta
		if err := json.Unmarshal(fc.Validators, &validators); err != nil {
			validators = nil
			// Try unmarshal as []string (bare addresses)
			var addrs []string
			if err2 := json.Unmarshal(fc.Validators, &addrs); err2 != nil {
				return Config{}, fmt.Errorf("invalid validators: %w", err)
			}
			for _, a := range addrs {
				validators = append(validators, ValidatorMeta{Address: a})
			}
		}
	}
	return fc.resolve(validators), nil
}

func LoadYAMLConfig(r io.Reader) (Config, error) {
	var fc fileConfig
	if err := yaml.NewDecoder(r).Decode(&fc); err != nil && err != io.EOF {
		return Config{}, err
	}
	return fc.resolve(fc.YAMLValidators), nil
}

func (fc fileConfig) resolve(validators []ValidatorMeta) Config {
	cfg := Default()
	cfg.Account = strings.TrimSpace(fc.Account)
	cfg.ChainID = fc.ChainID
	cfg.Contracts = fc.Contracts
	cfg.Validators = validators
	cfg.SelectedValidator = fc.SelectedValidator
	cfg.LogFile = fc.LogFile
	cfg.Analytics = fc.Analytics

	// Migration for legacy single-endpoint config
	switch {
	case len(fc.RPCURLs) > 0:
		cfg.RPCURLs = fc.RPCURLs
	case fc.RPCURL != "":
		cfg.RPCURLs = []string{fc.RPCURL}
	}
	if fc.PollIntervalSeconds != nil {
		cfg.PollIntervalSeconds = *fc.PollIntervalSeconds
	}
	if fc.DisplayDecimals != nil {
		cfg.DisplayDecimals = *fc.DisplayDecimals
	}
	if fc.PrivateKeyEnv != "" {
		cfg.PrivateKeyEnv = fc.PrivateKeyEnv
	}
	return cfg
}

func SaveConfig(cfg Config, path string) error {
	if errs := cfg.Validate(); len(errs) > 0 {
		return fmt.Errorf("validation failed: %w", errs[0])
	}

	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return err
	}

	if len(data) == 0 {
		return fmt.Errorf("validation failed: encoded configuration is empty")
	}

	// Create a backup of the existing file
	if _, err := os.Stat(path); err == nil {
		backupPath := fmt.Sprintf("%s.%s.bak", path, time.Now().Format("20060102-150405"))
		input, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read existing config for backup: %w", err)
		}
		if err := os.WriteFile(backupPath, input, 0600); err != nil {
			return fmt.Errorf("failed to write backup config: %w", err)
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func RestoreLastBackup(configPath string) error {
	matches, err := filepath.Glob(configPath + ".*.bak")
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return fmt.Errorf("no backup files found")
	}
	sort.Strings(matches)
	lastBackup := matches[len(matches)-1]

	data, err := os.ReadFile(lastBackup)
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, data, 0600)
}
