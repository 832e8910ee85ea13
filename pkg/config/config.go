package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	HTTP     HTTPConfig
	Site     SiteConfig
	AppPanel AppPanelConfig
	Sheets   SheetsConfig
	Tables   TablesConfig
	WhatsApp WhatsAppConfig
	Retry    RetryConfig
	Ledger   LedgerConfig
	DB       DBConfig
	Redis    RedisConfig
	Invoice  InvoiceConfig
	Rules    RulesConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints that envconfig tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	if c.Ledger.Backend == LedgerBackendSQL && c.DB.DSN == "" {
		return fmt.Errorf("%s is required when %s=%s", EnvDBDSN, EnvLedgerBackend, LedgerBackendSQL)
	}
	if c.Sheets.CredentialsFile == "" && c.Sheets.CredentialsJSON == "" {
		return fmt.Errorf("either %s or %s is required", EnvSheetsCredentialsFile, EnvSheetsCredentialsJSON)
	}
	if _, err := c.App.Location(); err != nil {
		return err
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"TRIAGE_APP_ENV" default:"dev" validate:"oneof=dev staging prod"`
	LogLevel     string `envconfig:"TRIAGE_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"TRIAGE_LOG_FORMAT" default:"json" validate:"oneof=json console"`
	LogWarnStack bool   `envconfig:"TRIAGE_LOG_WARN_STACK" default:"false"`
	Timezone     string `envconfig:"TRIAGE_TIMEZONE" default:"America/Sao_Paulo"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// Location resolves the operating timezone used for dates and cutoffs.
func (a AppConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", a.Timezone, err)
	}
	return loc, nil
}

type HTTPConfig struct {
	Addr string `envconfig:"TRIAGE_HTTP_ADDR" default:":9090"`
}

type SiteConfig struct {
	Enabled        bool          `envconfig:"TRIAGE_SITE_ENABLED" default:"true"`
	BaseURL        string        `envconfig:"TRIAGE_SITE_BASE_URL" default:"https://aogosto.com.br/delivery" validate:"url"`
	ConsumerKey    string        `envconfig:"TRIAGE_SITE_CONSUMER_KEY"`
	ConsumerSecret string        `envconfig:"TRIAGE_SITE_CONSUMER_SECRET"`
	PerPage        int           `envconfig:"TRIAGE_SITE_PER_PAGE" default:"5" validate:"min=1,max=100"`
	Lookback       time.Duration `envconfig:"TRIAGE_SITE_LOOKBACK" default:"1h"`
	Interval       time.Duration `envconfig:"TRIAGE_SITE_INTERVAL" default:"30s"`
	Timeout        time.Duration `envconfig:"TRIAGE_SITE_TIMEOUT" default:"30s"`
	LedgerFile     string        `envconfig:"TRIAGE_SITE_LEDGER_FILE" default:"registered_orders.json"`
}

type AppPanelConfig struct {
	Enabled    bool          `envconfig:"TRIAGE_APP_ENABLED" default:"false"`
	BaseURL    string        `envconfig:"TRIAGE_APP_BASE_URL" default:"https://shop.fabapp.com/panel" validate:"url"`
	StoreID    string        `envconfig:"TRIAGE_APP_STORE_ID" default:"26682591"`
	AuthToken  string        `envconfig:"TRIAGE_APP_AUTH_TOKEN"`
	BatchSize  int           `envconfig:"TRIAGE_APP_BATCH_SIZE" default:"5" validate:"min=1"`
	Interval   time.Duration `envconfig:"TRIAGE_APP_INTERVAL" default:"65s"`
	Timeout    time.Duration `envconfig:"TRIAGE_APP_TIMEOUT" default:"30s"`
	LedgerFile string        `envconfig:"TRIAGE_APP_LEDGER_FILE" default:"registrado2.json"`
}

type SheetsConfig struct {
	SpreadsheetID    string  `envconfig:"TRIAGE_SHEETS_SPREADSHEET_ID" required:"true" validate:"required"`
	CredentialsFile  string  `envconfig:"TRIAGE_SHEETS_CREDENTIALS_FILE"`
	CredentialsJSON  string  `envconfig:"TRIAGE_SHEETS_CREDENTIALS_JSON"`
	TemplateRow      int     `envconfig:"TRIAGE_SHEETS_TEMPLATE_ROW" default:"2" validate:"min=1"`
	TextColumns      []int   `envconfig:"TRIAGE_SHEETS_TEXT_COLUMNS" default:"2,27,23"`
	SetupTextColumns []int   `envconfig:"TRIAGE_SHEETS_SETUP_TEXT_COLUMNS" default:"2,27,23"`
	RequestsPerSec   float64 `envconfig:"TRIAGE_SHEETS_RPS" default:"1" validate:"gt=0"`
	Burst            int     `envconfig:"TRIAGE_SHEETS_BURST" default:"5" validate:"min=1"`
}

type TablesConfig struct {
	NewOrders  string `envconfig:"TRIAGE_TABLE_NEW_ORDERS" default:"Novos Pedidos"`
	Scheduled  string `envconfig:"TRIAGE_TABLE_SCHEDULED" default:"Agendados"`
	CDBarreiro string `envconfig:"TRIAGE_TABLE_CD_BARREIRO" default:"CD Barreiro"`
	CDSion     string `envconfig:"TRIAGE_TABLE_CD_SION" default:"CD Sion"`
}

// All lists every destination table in a stable order.
func (t TablesConfig) All() []string {
	return []string{t.NewOrders, t.Scheduled, t.CDBarreiro, t.CDSion}
}

type WhatsAppConfig struct {
	SiteURL       string        `envconfig:"TRIAGE_WHATSAPP_SITE_URL"`
	SiteAPIKey    string        `envconfig:"TRIAGE_WHATSAPP_SITE_API_KEY"`
	AppURL        string        `envconfig:"TRIAGE_WHATSAPP_APP_URL" default:"https://api.wzap.chat/v1/messages"`
	AppToken      string        `envconfig:"TRIAGE_WHATSAPP_APP_TOKEN"`
	OperatorPhone string        `envconfig:"TRIAGE_WHATSAPP_OPERATOR_PHONE" default:"5531998501560"`
	Timeout       time.Duration `envconfig:"TRIAGE_WHATSAPP_TIMEOUT" default:"10s"`
}

type RetryConfig struct {
	MaxAttempts   int           `envconfig:"TRIAGE_RETRY_MAX_ATTEMPTS" default:"5" validate:"min=1"`
	Delay         time.Duration `envconfig:"TRIAGE_RETRY_DELAY" default:"25s"`
	CycleCooldown time.Duration `envconfig:"TRIAGE_CYCLE_COOLDOWN" default:"120s"`
}

type LedgerConfig struct {
	Backend string `envconfig:"TRIAGE_LEDGER_BACKEND" default:"file" validate:"oneof=file sql"`
	Dir     string `envconfig:"TRIAGE_LEDGER_DIR" default:"."`
}

type DBConfig struct {
	Driver          string        `envconfig:"TRIAGE_DB_DRIVER" default:"sqlite" validate:"oneof=sqlite postgres"`
	DSN             string        `envconfig:"TRIAGE_DB_DSN"`
	MaxOpenConns    int           `envconfig:"TRIAGE_DB_MAX_OPEN_CONNS" default:"4"`
	MaxIdleConns    int           `envconfig:"TRIAGE_DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"TRIAGE_DB_CONN_MAX_LIFETIME" default:"1h"`
}

type RedisConfig struct {
	URL     string        `envconfig:"TRIAGE_REDIS_URL"`
	LockTTL time.Duration `envconfig:"TRIAGE_REDIS_LOCK_TTL" default:"10m"`
}

type InvoiceConfig struct {
	Enabled   bool          `envconfig:"TRIAGE_INVOICE_ENABLED" default:"true"`
	Dir       string        `envconfig:"TRIAGE_INVOICE_DIR" default:"invoices"`
	GCSBucket string        `envconfig:"TRIAGE_INVOICE_GCS_BUCKET"`
	GCSPrefix string        `envconfig:"TRIAGE_INVOICE_GCS_PREFIX" default:"invoices/"`
	ChromeURL string        `envconfig:"TRIAGE_INVOICE_CHROME_URL"`
	NoSandbox bool          `envconfig:"TRIAGE_INVOICE_NO_SANDBOX" default:"false"`
	Timeout   time.Duration `envconfig:"TRIAGE_INVOICE_TIMEOUT" default:"30s"`
	AssignURL string        `envconfig:"TRIAGE_INVOICE_ASSIGN_URL"`
}

type RulesConfig struct {
	File string `envconfig:"TRIAGE_RULES_FILE"`
}
