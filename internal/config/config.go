package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/erictidmore/stock-screener/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Alpaca    AlpacaConfig    `mapstructure:"alpaca"`
	Edgar     EdgarConfig     `mapstructure:"edgar"`
	Screener  ScreenerConfig  `mapstructure:"screener"`
	News      NewsConfig      `mapstructure:"news"`
	Autopilot AutopilotConfig `mapstructure:"autopilot"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// AlpacaConfig covers market-mover and news data access.
type AlpacaConfig struct {
	KeyID          string        `mapstructure:"key_id"`
	SecretKey      string        `mapstructure:"secret_key"`
	DataBaseURL    string        `mapstructure:"data_base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	MaxRetries     int           `mapstructure:"max_retries"`
}

// EdgarConfig captures SEC EDGAR connectivity for the domicile filter.
type EdgarConfig struct {
	SubmissionsBaseURL string        `mapstructure:"submissions_base_url"`
	TickerMapURL       string        `mapstructure:"ticker_map_url"`
	UserAgent          string        `mapstructure:"user_agent"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	RatePerSecond      float64       `mapstructure:"rate_per_second"`
	CacheTTL           time.Duration `mapstructure:"cache_ttl"`
	CacheFile          string        `mapstructure:"cache_file"`
	RestrictedCodes    []string      `mapstructure:"restricted_codes"`
}

// ScreenerConfig governs the filter pipeline.
type ScreenerConfig struct {
	TopN               int           `mapstructure:"top_n"`
	MinChangePct       float64       `mapstructure:"min_change_pct"`
	MinPrice           float64       `mapstructure:"min_price"`
	MaxPrice           float64       `mapstructure:"max_price"`
	DisabledStages     []string      `mapstructure:"disabled_stages"`
	CatalystHardMode   bool          `mapstructure:"catalyst_hard_mode"`
	DomicileFailClosed bool          `mapstructure:"domicile_fail_closed"`
	ScanTimeout        time.Duration `mapstructure:"scan_timeout"`
}

// NewsConfig tunes catalyst checks and the breaking-news monitor.
type NewsConfig struct {
	Lookback       time.Duration `mapstructure:"lookback"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	MaxHeadlines   int           `mapstructure:"max_headlines"`
	RoundupPhrases []string      `mapstructure:"roundup_phrases"`
}

// AutopilotConfig drives the unattended daily scan cycle. Minute values
// are minute-of-day in the configured market timezone.
type AutopilotConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Timezone          string        `mapstructure:"timezone"`
	ResetMinute       int           `mapstructure:"reset_minute"`
	ScanMinute        int           `mapstructure:"scan_minute"`
	RescanInterval    time.Duration `mapstructure:"rescan_interval"`
	MarketOpenMinute  int           `mapstructure:"market_open_minute"`
	MarketCloseMinute int           `mapstructure:"market_close_minute"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
}

// DashboardConfig sets HTTP listener and broadcast behaviour.
type DashboardConfig struct {
	ListenAddr   string        `mapstructure:"listen_addr"`
	TickInterval time.Duration `mapstructure:"tick_interval"`
	LogTail      int           `mapstructure:"log_tail"`
}

// Load builds configuration from file, environment, and defaults. A
// .env file in the working directory supplies the Alpaca credentials
// via the conventional APCA_* variables.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("SCREENER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Alpaca.KeyID == "" {
		cfg.Alpaca.KeyID = os.Getenv("APCA_API_KEY_ID")
	}
	if cfg.Alpaca.SecretKey == "" {
		cfg.Alpaca.SecretKey = os.Getenv("APCA_API_SECRET_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "stock-screener")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("alpaca.data_base_url", "https://data.alpaca.markets")
	v.SetDefault("alpaca.request_timeout", "15s")
	v.SetDefault("alpaca.user_agent", "stock-screener/1.0")
	v.SetDefault("alpaca.max_retries", 3)

	v.SetDefault("edgar.submissions_base_url", "https://data.sec.gov/submissions")
	v.SetDefault("edgar.ticker_map_url", "https://www.sec.gov/files/company_tickers.json")
	v.SetDefault("edgar.user_agent", "StockScreener admin@localhost")
	v.SetDefault("edgar.request_timeout", "15s")
	v.SetDefault("edgar.rate_per_second", 10.0)
	v.SetDefault("edgar.cache_ttl", "24h")
	v.SetDefault("edgar.cache_file", ".domicile_cache.json")
	// F4=China, G6=Hong Kong, E9=Cayman Islands, K6=British Virgin Islands
	v.SetDefault("edgar.restricted_codes", []string{"F4", "G6", "E9", "K6"})

	v.SetDefault("screener.top_n", 20)
	v.SetDefault("screener.min_change_pct", 20.0)
	v.SetDefault("screener.min_price", 1.0)
	v.SetDefault("screener.max_price", 22.0)
	v.SetDefault("screener.catalyst_hard_mode", false)
	v.SetDefault("screener.domicile_fail_closed", false)
	v.SetDefault("screener.scan_timeout", "2m")

	v.SetDefault("news.lookback", "48h")
	v.SetDefault("news.poll_interval", "60s")
	v.SetDefault("news.max_headlines", 10)
	v.SetDefault("news.roundup_phrases", []string{
		"stocks moving", "stock moving", "pre-market session", "after-market session",
		"intraday session", "most active", "biggest movers", "top gainers",
		"top losers", "mid-day gainers", "mid-day losers", "weekly gainer",
		"unusual volume", "penny stock", "meme stock",
	})

	v.SetDefault("autopilot.enabled", true)
	v.SetDefault("autopilot.timezone", "America/New_York")
	v.SetDefault("autopilot.reset_minute", 480) // 8:00 AM ET
	v.SetDefault("autopilot.scan_minute", 560)  // 9:20 AM ET
	v.SetDefault("autopilot.rescan_interval", "5m")
	v.SetDefault("autopilot.market_open_minute", 570)  // 9:30 AM ET
	v.SetDefault("autopilot.market_close_minute", 960) // 4:00 PM ET
	v.SetDefault("autopilot.poll_interval", "30s")

	v.SetDefault("dashboard.listen_addr", ":8050")
	v.SetDefault("dashboard.tick_interval", "1s")
	v.SetDefault("dashboard.log_tail", 50)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Screener.TopN <= 0 {
		return fmt.Errorf("screener.top_n must be greater than zero")
	}
	if c.Screener.MinPrice < 0 || c.Screener.MaxPrice <= 0 {
		return fmt.Errorf("screener price bounds must be positive")
	}
	if c.Screener.MaxPrice < c.Screener.MinPrice {
		return fmt.Errorf("screener.max_price must not be below screener.min_price")
	}
	if c.Screener.ScanTimeout <= 0 {
		return fmt.Errorf("screener.scan_timeout must be greater than zero")
	}
	if c.News.Lookback <= 0 {
		return fmt.Errorf("news.lookback must be greater than zero")
	}
	if c.News.PollInterval <= 0 {
		return fmt.Errorf("news.poll_interval must be greater than zero")
	}
	if c.Edgar.RatePerSecond <= 0 {
		return fmt.Errorf("edgar.rate_per_second must be greater than zero")
	}
	if c.Autopilot.PollInterval <= 0 {
		return fmt.Errorf("autopilot.poll_interval must be greater than zero")
	}
	if c.Autopilot.ScanMinute < c.Autopilot.ResetMinute {
		return fmt.Errorf("autopilot.scan_minute must not precede autopilot.reset_minute")
	}
	if c.Dashboard.TickInterval <= 0 {
		return fmt.Errorf("dashboard.tick_interval must be greater than zero")
	}
	if _, err := time.LoadLocation(c.Autopilot.Timezone); err != nil {
		return fmt.Errorf("autopilot.timezone: %w", err)
	}
	return nil
}
