package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/vhr-sample/internal/model"
	"github.com/sells-group/vhr-sample/internal/sampling"
)

// Config holds the full application configuration.
type Config struct {
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Zonal    ZonalConfig    `yaml:"zonal" mapstructure:"zonal"`
	Prep     PrepConfig     `yaml:"prep" mapstructure:"prep"`
	Stage1   Stage1Config   `yaml:"stage1" mapstructure:"stage1"`
	Stage2   Stage2Config   `yaml:"stage2" mapstructure:"stage2"`
	Sampling SamplingConfig `yaml:"sampling" mapstructure:"sampling"`
	Ledger   LedgerConfig   `yaml:"ledger" mapstructure:"ledger"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ZonalConfig configures zonal statistics against the change map.
type ZonalConfig struct {
	PixelArea float64 `yaml:"pixel_area" mapstructure:"pixel_area"` // 0 = derive from the raster transform
	NoData    []int   `yaml:"no_data" mapstructure:"no_data"`
	Workers   int     `yaml:"workers" mapstructure:"workers"`
}

// PrepConfig configures the tile preparation pass.
type PrepConfig struct {
	LandCoverThreshold float64 `yaml:"lc_threshold" mapstructure:"lc_threshold"`
	LandCoverNoData    []int   `yaml:"lc_no_data" mapstructure:"lc_no_data"`
	ChangeClasses      []int   `yaml:"change_classes" mapstructure:"change_classes"`
}

// Stage1Config configures tile stratification.
type Stage1Config struct {
	Threshold  float64 `yaml:"threshold" mapstructure:"threshold"`
	Size       int     `yaml:"size" mapstructure:"size"`
	Allocation string  `yaml:"allocation" mapstructure:"allocation"`
	Specified  []int   `yaml:"specified" mapstructure:"specified"`
}

// Stage2Config configures point sampling.
type Stage2Config struct {
	Mode       string `yaml:"mode" mapstructure:"mode"`
	Size       int    `yaml:"size" mapstructure:"size"`
	Allocation []int  `yaml:"allocation" mapstructure:"allocation"`
	Mask       []int  `yaml:"mask" mapstructure:"mask"`
	Margin     int    `yaml:"margin" mapstructure:"margin"`
}

// SamplingConfig holds settings shared by both stages.
type SamplingConfig struct {
	Seed uint64 `yaml:"seed" mapstructure:"seed"` // 0 = seed from the clock
}

// LedgerConfig configures the SQLite design ledger.
type LedgerConfig struct {
	Path string `yaml:"path" mapstructure:"path"` // empty disables the ledger
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("VHRSAMPLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("zonal.pixel_area", 900)
	v.SetDefault("zonal.no_data", []int{0, 255})
	v.SetDefault("zonal.workers", 4)
	v.SetDefault("prep.lc_threshold", 0.4)
	v.SetDefault("prep.lc_no_data", []int{0, 255})
	v.SetDefault("prep.change_classes", []int{})
	v.SetDefault("stage1.threshold", 0.5)
	v.SetDefault("stage1.size", 100)
	v.SetDefault("stage1.allocation", string(sampling.MethodNeyman))
	v.SetDefault("stage1.specified", []int{})
	v.SetDefault("stage2.mode", string(model.ModeRandom))
	v.SetDefault("stage2.size", 100)
	v.SetDefault("stage2.allocation", []int{})
	v.SetDefault("stage2.mask", []int{0, 255})
	v.SetDefault("stage2.margin", 25)
	v.SetDefault("sampling.seed", 0)
	v.SetDefault("ledger.path", "")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate rejects malformed values before any raster is opened. Errors are
// sampling.ConfigurationError keyed by the config path.
func (c *Config) Validate() error {
	switch c.Log.Format {
	case "json", "console":
	default:
		return sampling.NewConfigurationError("log.format", "must be json or console, got %q", c.Log.Format)
	}
	if c.Zonal.PixelArea < 0 {
		return sampling.NewConfigurationError("zonal.pixel_area", "must be >= 0, got %g", c.Zonal.PixelArea)
	}
	if c.Zonal.Workers < 1 || c.Zonal.Workers > 64 {
		return sampling.NewConfigurationError("zonal.workers", "must be between 1 and 64, got %d", c.Zonal.Workers)
	}
	if c.Prep.LandCoverThreshold < 0 || c.Prep.LandCoverThreshold > 1 {
		return sampling.NewConfigurationError("prep.lc_threshold", "must be between 0 and 1, got %g", c.Prep.LandCoverThreshold)
	}
	if c.Stage1.Threshold <= 0 || c.Stage1.Threshold > 1 {
		return sampling.NewConfigurationError("stage1.threshold", "must be in (0, 1], got %g", c.Stage1.Threshold)
	}
	if c.Stage1.Size < 0 {
		return sampling.NewConfigurationError("stage1.size", "must be >= 0, got %d", c.Stage1.Size)
	}
	if _, err := sampling.ParseMethod(c.Stage1.Allocation); err != nil {
		return err
	}
	switch model.SampleMode(strings.ToLower(strings.TrimSpace(c.Stage2.Mode))) {
	case model.ModeRandom, model.ModeStratified:
	default:
		return sampling.NewConfigurationError("stage2.mode", "unknown sampling mode %q", c.Stage2.Mode)
	}
	if c.Stage2.Size < 0 {
		return sampling.NewConfigurationError("stage2.size", "must be >= 0, got %d", c.Stage2.Size)
	}
	if c.Stage2.Margin < 0 {
		return sampling.NewConfigurationError("stage2.margin", "must be >= 0, got %d", c.Stage2.Margin)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
