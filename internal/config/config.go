package config

import (
	"strings"
	"time"
)

// Validation tags described here: https://pkg.go.dev/github.com/go-playground/validator/v10
type Config struct {
	Blockchain struct {
		EthNodeAddress  string        `env:"ETH_NODE_ADDRESS"     flag:"eth-node-address"     validate:"omitempty,url"      desc:"ethereum node rpc url, event watching is disabled if empty"`
		PollingInterval time.Duration `env:"ETH_POLLING_INTERVAL" flag:"eth-polling-interval" desc:"interval between polling for blockchain events"`
		MaxReconnects   int           `env:"ETH_MAX_RECONNECTS"   flag:"eth-max-reconnects"   validate:"omitempty,min=1"    desc:"maximum number of consequent failed requests before the watcher exits"`
	}
	Environment string `env:"ENVIRONMENT" flag:"environment"`
	Log         struct {
		Color        bool   `env:"LOG_COLOR"         flag:"log-color"`
		FolderPath   string `env:"LOG_FOLDER_PATH"   flag:"log-folder-path"   validate:"omitempty,dir"     desc:"enables file logging and sets the folder path"`
		IsProd       bool   `env:"LOG_IS_PROD"       flag:"log-is-prod"       validate:""                  desc:"affects the format of the log output"`
		JSON         bool   `env:"LOG_JSON"          flag:"log-json"`
		LevelApp     string `env:"LOG_LEVEL_APP"     flag:"log-level-app"     validate:"omitempty,oneof=debug info warn error dpanic panic fatal"`
		LevelHTTP    string `env:"LOG_LEVEL_HTTP"    flag:"log-level-http"    validate:"omitempty,oneof=debug info warn error dpanic panic fatal"`
		LevelWatcher string `env:"LOG_LEVEL_WATCHER" flag:"log-level-watcher" validate:"omitempty,oneof=debug info warn error dpanic panic fatal"`
	}
	Verifier struct {
		KnownFunctions string `env:"VERIFIER_KNOWN_FUNCTIONS" flag:"verifier-known-functions" desc:"semicolon-separated function signatures added to the registry, e.g. 'stake(uint256,bytes);unstake(uint256,bytes)'"`
		KnownEvents    string `env:"VERIFIER_KNOWN_EVENTS"    flag:"verifier-known-events"    desc:"semicolon-separated event signatures added to the registry, e.g. 'Staked(address,uint256)'"`
	}
	Watch struct {
		ContractAddress string `env:"WATCH_CONTRACT_ADDRESS" flag:"watch-contract-address" validate:"omitempty,eth_addr"                desc:"address of the contract which events are watched"`
		Events          string `env:"WATCH_EVENTS"           flag:"watch-events"           validate:"required_with=ContractAddress" desc:"semicolon-separated event signatures to watch, e.g. 'StartVote(uint256,address,string);ExecuteVote(uint256)'"`
		FromBlock       uint64 `env:"WATCH_FROM_BLOCK"       flag:"watch-from-block"                                                desc:"first block to query, defaults to the latest block"`
		HistorySize     int    `env:"WATCH_HISTORY_SIZE"     flag:"watch-history-size"     validate:"omitempty,min=1"               desc:"number of recent events kept in memory"`
	}
	Web struct {
		Address   string `env:"WEB_ADDRESS"    flag:"web-address"    validate:"required,hostname_port" desc:"http server address host:port"`
		PublicUrl string `env:"WEB_PUBLIC_URL" flag:"web-public-url" validate:"omitempty,url"          desc:"public url of the verifier, falls back to web-address if empty"`
	}
}

func (cfg *Config) SetDefaults() {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	// Blockchain

	if cfg.Blockchain.MaxReconnects == 0 {
		cfg.Blockchain.MaxReconnects = 30
	}
	if cfg.Blockchain.PollingInterval == 0 {
		cfg.Blockchain.PollingInterval = 10 * time.Second
	}

	// Log

	if cfg.Log.LevelApp == "" {
		cfg.Log.LevelApp = "debug"
	}
	if cfg.Log.LevelHTTP == "" {
		cfg.Log.LevelHTTP = "info"
	}
	if cfg.Log.LevelWatcher == "" {
		cfg.Log.LevelWatcher = "info"
	}

	// Watch

	if cfg.Watch.HistorySize == 0 {
		cfg.Watch.HistorySize = 256
	}

	// Web

	if cfg.Web.Address == "" {
		cfg.Web.Address = "0.0.0.0:8080"
	}
	if cfg.Web.PublicUrl == "" {
		cfg.Web.PublicUrl = "http://" + strings.Replace(cfg.Web.Address, "0.0.0.0", "localhost", 1)
	}
}

// IsWatchEnabled is true when both node and contract are configured
func (cfg *Config) IsWatchEnabled() bool {
	return cfg.Blockchain.EthNodeAddress != "" && cfg.Watch.ContractAddress != ""
}

// GetSanitized returns a copy of the config with sensitive data removed
// explicitly adding each field here to avoid accidentally leaking sensitive data
func (cfg *Config) GetSanitized() interface{} {
	publicCfg := Config{}

	// node url may carry an api key, so it is not exposed
	publicCfg.Blockchain.PollingInterval = cfg.Blockchain.PollingInterval
	publicCfg.Blockchain.MaxReconnects = cfg.Blockchain.MaxReconnects
	publicCfg.Environment = cfg.Environment

	publicCfg.Log.Color = cfg.Log.Color
	publicCfg.Log.FolderPath = cfg.Log.FolderPath
	publicCfg.Log.IsProd = cfg.Log.IsProd
	publicCfg.Log.JSON = cfg.Log.JSON
	publicCfg.Log.LevelApp = cfg.Log.LevelApp
	publicCfg.Log.LevelHTTP = cfg.Log.LevelHTTP
	publicCfg.Log.LevelWatcher = cfg.Log.LevelWatcher

	publicCfg.Verifier.KnownFunctions = cfg.Verifier.KnownFunctions
	publicCfg.Verifier.KnownEvents = cfg.Verifier.KnownEvents

	publicCfg.Watch.ContractAddress = cfg.Watch.ContractAddress
	publicCfg.Watch.Events = cfg.Watch.Events
	publicCfg.Watch.FromBlock = cfg.Watch.FromBlock
	publicCfg.Watch.HistorySize = cfg.Watch.HistorySize

	publicCfg.Web.Address = cfg.Web.Address
	publicCfg.Web.PublicUrl = cfg.Web.PublicUrl

	return publicCfg
}

// SplitList splits semicolon-separated list, trimming whitespace and skipping empty items.
// Semicolon is used because signatures contain commas
func SplitList(s string) []string {
	var res []string
	for _, item := range strings.Split(s, ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		res = append(res, item)
	}
	return res
}
