package config

import "fmt"

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// PaymeConfig configures the synchronous Payme merchant RPC gateway.
type PaymeConfig struct {
	// MerchantKey is the Basic-auth password checked on every RPC call.
	// When empty, a minimum-length sanity check is applied instead.
	MerchantKey string `mapstructure:"merchant_key"`
	// TimeoutHours is the window after which an unperformed transaction
	// becomes eligible for timeout cancellation. Defaults to 12.
	TimeoutHours int `mapstructure:"timeout_hours"`
}

// AtmosConfig configures the Atmos webhook gateway and outbound merchant API.
type AtmosConfig struct {
	StoreID        string `mapstructure:"store_id"`
	APISecret      string `mapstructure:"api_secret"`
	BaseURL        string `mapstructure:"base_url"`
	TokenURL       string `mapstructure:"token_url"`
	ConsumerKey    string `mapstructure:"consumer_key"`
	ConsumerSecret string `mapstructure:"consumer_secret"`
}

// PricePointConfig maps a payable amount (minor currency units) to a plan
// and entitlement duration. Amounts outside the table are hard errors.
type PricePointConfig struct {
	Amount       int64  `mapstructure:"amount"`
	Plan         string `mapstructure:"plan"`
	DurationDays int    `mapstructure:"duration_days"`
}

// ReconcileConfig configures the batch reconciliation sweep.
type ReconcileConfig struct {
	SweepIntervalMinutes int `mapstructure:"sweep_interval_minutes"`
}

type BillingConfig struct {
	Payme     PaymeConfig        `mapstructure:"payme"`
	Atmos     AtmosConfig        `mapstructure:"atmos"`
	Pricing   []PricePointConfig `mapstructure:"pricing"`
	Reconcile ReconcileConfig    `mapstructure:"reconcile"`
}
