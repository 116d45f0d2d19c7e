// internal/common/config/config.go
package config

import (
	"fmt"
	"time"

	"buyer-group-workers/internal/buyergroup"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	BuyerGroup    BuyerGroupConfig        `mapstructure:"buyer_group"`
	Enrichment    EnrichmentConfig        `mapstructure:"enrichment"`
	Integrations  IntegrationConfig       `mapstructure:"integrations"`
	Observability ObservabilityConfig     `mapstructure:"observability"`
	Logging       LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"`
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

// --- Buyer group ---

// BuyerGroupConfig holds composition limits and storage names shared by the
// buyer group workers and the batch command.
type BuyerGroupConfig struct {
	MaxTotal int `mapstructure:"max_total"`
	// RoleCaps is keyed by role name; a role left out is uncapped.
	RoleCaps          map[string]int `mapstructure:"role_caps"`
	CandidateCacheTTL int            `mapstructure:"candidate_cache_ttl"` // seconds
	IndexName         string         `mapstructure:"index_name"`
	RegistryPath      string         `mapstructure:"registry_path"`
	RemediateInvalid  bool           `mapstructure:"remediate_invalid"`
}

// Constraints converts the configured limits. Role keys go through
// buyergroup.ParseRole, so "DecisionMaker" and "decision_maker" both work.
func (b BuyerGroupConfig) Constraints() (buyergroup.GroupConstraints, error) {
	c := buyergroup.GroupConstraints{MaxTotal: b.MaxTotal, RoleCaps: make(map[buyergroup.Role]int, len(b.RoleCaps))}
	for name, limit := range b.RoleCaps {
		role, err := buyergroup.ParseRole(name)
		if err != nil {
			return buyergroup.GroupConstraints{}, fmt.Errorf("buyer_group.role_caps: %w", err)
		}
		c.RoleCaps[role] = limit
	}
	if err := c.Validate(); err != nil {
		return buyergroup.GroupConstraints{}, fmt.Errorf("buyer_group: %w", err)
	}
	return c, nil
}

func (b BuyerGroupConfig) CacheTTL() time.Duration {
	return time.Duration(b.CandidateCacheTTL) * time.Second
}

// EnrichmentConfig configures the people enrichment provider.
type EnrichmentConfig struct {
	Provider          string  `mapstructure:"provider"`
	BaseURL           string  `mapstructure:"base_url"`
	APIKey            string  `mapstructure:"api_key"`
	Timeout           int     `mapstructure:"timeout"` // milliseconds
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// IntegrationConfig holds settings for CRM, Email, and other external services.
type IntegrationConfig struct {
	Zoho struct {
		BaseURL   string `mapstructure:"base_url"`
		APIKey    string `mapstructure:"api_key"`
		AuthToken string `mapstructure:"oauth_token"`
	} `mapstructure:"zoho"`

	AWS struct {
		Region string `mapstructure:"region"`
		SES    struct {
			Enabled   bool     `mapstructure:"enabled"`
			FromEmail string   `mapstructure:"from_email"`
			ReportTo  []string `mapstructure:"report_to"`
		} `mapstructure:"ses"`
		SNS struct {
			Enabled             bool   `mapstructure:"enabled"`
			RemediationTopicARN string `mapstructure:"remediation_topic_arn"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`
}

type ObservabilityConfig struct {
	ServiceName    string `mapstructure:"service_name"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	MetricsAddress string `mapstructure:"metrics_address"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
