package config

import (
	"errors"
	"os"
	"strings"

	"github.com/apeaircreative/pepper-ecommerce-analysis/pkg/errs"
	"github.com/apeaircreative/pepper-ecommerce-analysis/pkg/models"

	"github.com/spf13/viper"
)

// EnvPrefix préfixe des variables d'environnement (JOURNEY_SOURCE_DSN, ...).
const EnvPrefix = "JOURNEY"

// Config représente la configuration complète de l'outil.
type Config struct {
	Source   SourceConfig   `mapstructure:"source"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Report   ReportConfig   `mapstructure:"report"`
	Log      LogConfig      `mapstructure:"log"`
}

// SourceConfig : base SQL (dsn) ou fichiers CSV.
type SourceConfig struct {
	DSN           string `mapstructure:"dsn"`
	OrdersTable   string `mapstructure:"orders_table"`
	ProductsTable string `mapstructure:"products_table"`
	OrdersCSV     string `mapstructure:"orders_csv"`
	ProductsCSV   string `mapstructure:"products_csv"`
	DataDir       string `mapstructure:"data_dir"`
}

// AnalysisConfig : seuils du moteur.
type AnalysisConfig struct {
	StyleThreshold      int     `mapstructure:"style_threshold"`
	LoyaltyThreshold    int     `mapstructure:"loyalty_threshold"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
	FlowMinProbability  float64 `mapstructure:"flow_min_probability"`
	BuilderMinSupport   int     `mapstructure:"builder_min_support"`
	Workers             int     `mapstructure:"workers"`
}

// ReportConfig : format (markdown, json, yaml) et fichier de sortie ("" = stdout).
type ReportConfig struct {
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// LogConfig : mode zap (dev/prod) et niveau.
type LogConfig struct {
	Mode    string `mapstructure:"mode"`
	Level   string `mapstructure:"level"`
	Verbose bool   `mapstructure:"verbose"`
}

// SetDefaults enregistre les valeurs par défaut de chaque clé.
func SetDefaults(v *viper.Viper) {
	d := models.DefaultConfig()
	v.SetDefault("source.dsn", "")
	v.SetDefault("source.orders_table", "orders")
	v.SetDefault("source.products_table", "products")
	v.SetDefault("source.orders_csv", "")
	v.SetDefault("source.products_csv", "")
	v.SetDefault("source.data_dir", "")
	v.SetDefault("analysis.style_threshold", d.StyleThreshold)
	v.SetDefault("analysis.loyalty_threshold", d.LoyaltyThreshold)
	v.SetDefault("analysis.confidence_threshold", d.ConfidenceThreshold)
	v.SetDefault("analysis.flow_min_probability", d.FlowMinProbability)
	v.SetDefault("analysis.builder_min_support", d.BuilderMinSupport)
	v.SetDefault("analysis.workers", d.Workers)
	v.SetDefault("report.format", "markdown")
	v.SetDefault("report.output", "")
	v.SetDefault("log.mode", "dev")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.verbose", false)
}

// New prépare une instance viper : défauts, variables JOURNEY_*, fichier journey.yaml.
func New(path string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("journey")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	return v
}

// Load lit la configuration ; un fichier absent (sans chemin explicite) donne les défauts.
func Load(v *viper.Viper) (*Config, error) {
	if path := v.ConfigFileUsed(); path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, errs.Config("config", "cannot read config file").Wrap(err)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errs.Config("config", "cannot read config file").Wrap(err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errs.Config("config", "cannot decode config").Wrap(err)
	}
	return &cfg, nil
}

// Validate contrôle les seuils et le format.
func (c *Config) Validate() error {
	a := c.Analysis
	switch {
	case a.StyleThreshold < 1:
		return errs.Config("analysis.style_threshold", "must be >= 1")
	case a.LoyaltyThreshold < 1:
		return errs.Config("analysis.loyalty_threshold", "must be >= 1")
	case a.ConfidenceThreshold < 0 || a.ConfidenceThreshold > 1:
		return errs.Config("analysis.confidence_threshold", "must be within [0,1]")
	case a.FlowMinProbability < 0 || a.FlowMinProbability > 1:
		return errs.Config("analysis.flow_min_probability", "must be within [0,1]")
	case a.BuilderMinSupport < 1:
		return errs.Config("analysis.builder_min_support", "must be >= 1")
	case a.Workers < 1:
		return errs.Config("analysis.workers", "must be >= 1")
	}
	switch strings.ToLower(c.Report.Format) {
	case "markdown", "md", "json", "yaml", "yml":
	default:
		return errs.Config("report.format", "unsupported format "+c.Report.Format)
	}
	s := c.Source
	if s.DSN == "" && s.DataDir == "" && (s.OrdersCSV == "" || s.ProductsCSV == "") {
		return errs.Config("source", "set source.dsn, source.data_dir or both source.orders_csv and source.products_csv")
	}
	return nil
}

// Engine convertit la section analysis en models.Config pour le moteur.
func (c *Config) Engine() models.Config {
	return models.Config{
		StyleThreshold:      c.Analysis.StyleThreshold,
		LoyaltyThreshold:    c.Analysis.LoyaltyThreshold,
		ConfidenceThreshold: c.Analysis.ConfidenceThreshold,
		FlowMinProbability:  c.Analysis.FlowMinProbability,
		BuilderMinSupport:   c.Analysis.BuilderMinSupport,
		Workers:             c.Analysis.Workers,
		Verbose:             c.Log.Verbose,
	}
}
