package config

const EnvPrefix = "TRIAGE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	LedgerBackendFile = "file"
	LedgerBackendSQL  = "sql"
)

const (
	EnvAppEnv                = "TRIAGE_APP_ENV"
	EnvTimezone              = "TRIAGE_TIMEZONE"
	EnvSheetsSpreadsheetID   = "TRIAGE_SHEETS_SPREADSHEET_ID"
	EnvSheetsCredentialsFile = "TRIAGE_SHEETS_CREDENTIALS_FILE"
	EnvSheetsCredentialsJSON = "TRIAGE_SHEETS_CREDENTIALS_JSON"
	EnvLedgerBackend         = "TRIAGE_LEDGER_BACKEND"
	EnvDBDSN                 = "TRIAGE_DB_DSN"
	EnvSiteBaseURL           = "TRIAGE_SITE_BASE_URL"
	EnvSiteInterval          = "TRIAGE_SITE_INTERVAL"
	EnvSheetsTextColumns     = "TRIAGE_SHEETS_TEXT_COLUMNS"
)
