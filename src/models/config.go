package models

// MConfig Structure
type MConfig struct {
	Name       string           `yaml:"name"`
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	LogLevel   string           `yaml:"log_level"`
	Upstream   MUpstreamConfig  `yaml:"upstream"`
	Storage    MStorageConfig   `yaml:"storage"`
	Network    MNetworkConfig   `yaml:"network"`
	Indicator  MIndicatorConfig `yaml:"indicators"`
	Trading    MTradingConfig   `yaml:"trading"`
	DemoMode   bool             `yaml:"demo_mode"`
	Timeframes []string         `yaml:"timeframes"`
}

type MUpstreamConfig struct {
	WebsocketURL          string `yaml:"websocket_url"`
	RestBaseURL           string `yaml:"rest_base_url"`
	ReconnectBaseDelayMs  int    `yaml:"reconnect_base_delay_ms"`
	ReconnectMaxAttempts  int    `yaml:"reconnect_max_attempts"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	RetentionDays      int    `yaml:"retention_days"`
}

type MNetworkConfig struct {
	RequestTimeout int    `yaml:"timeout"`
	MaxRetries     int    `yaml:"retries"`
	UserAgent      string `yaml:"user_agent"`
}

type MIndicatorConfig struct {
	SMAPeriod        int     `yaml:"sma_period"`
	EMAPeriod        int     `yaml:"ema_period"`
	BollingerPeriod  int     `yaml:"bollinger_period"`
	BollingerStdDevs float64 `yaml:"bollinger_std_devs"`
}

type MTradingConfig struct {
	Symbol          string  `yaml:"symbol"`
	QuoteCurrency   string  `yaml:"quote_currency"`
	DefaultLeverage int     `yaml:"default_leverage"`
	CrossReservePct float64 `yaml:"cross_reserve_pct"` // fraction of open exposure held back in cross mode
}
