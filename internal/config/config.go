package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/catalog-studio/internal/model"
	"github.com/aliskhannn/catalog-studio/internal/naming"
	"github.com/aliskhannn/catalog-studio/internal/processor"
)

// EnvPrefix prefixes every environment override, e.g. STUDIO_CANVAS_WIDTH.
const EnvPrefix = "STUDIO"

// Config holds the main configuration for the application.
type Config struct {
	Paths      Paths      `mapstructure:"paths"`
	Canvas     Canvas     `mapstructure:"canvas"`
	Watermark  Watermark  `mapstructure:"watermark"`
	Background Background `mapstructure:"background"`
	Export     Export     `mapstructure:"export"`
	Product    Product    `mapstructure:"product"`
	Naming     Naming     `mapstructure:"naming"`
	Tags       Tags       `mapstructure:"tags"`
	Archive    Archive    `mapstructure:"archive"`
	Manifest   Manifest   `mapstructure:"manifest"`
	Storage    Storage    `mapstructure:"storage"`
	Kafka      Kafka      `mapstructure:"kafka"`
	Retry      Retry      `mapstructure:"retry"`
	Log        Log        `mapstructure:"log"`
}

// Paths holds the default input, output and archive locations.
type Paths struct {
	InputDir   string `mapstructure:"input_dir"`
	OutputDir  string `mapstructure:"output_dir"`
	ArchiveDir string `mapstructure:"archive_dir"` // empty means <output_dir>/Finished_Originals
}

// Canvas holds the output canvas geometry.
type Canvas struct {
	Width  int  `mapstructure:"width"`
	Height int  `mapstructure:"height"`
	Margin int  `mapstructure:"margin"`
	Shadow bool `mapstructure:"shadow"`
}

// Watermark holds the optional logo overlay settings.
type Watermark struct {
	Enabled bool    `mapstructure:"enabled"`
	Path    string  `mapstructure:"path"`
	Opacity float64 `mapstructure:"opacity"`
	Scale   float64 `mapstructure:"scale"`
}

// Background holds the external background-removal tool settings.
type Background struct {
	Remove  bool          `mapstructure:"remove"`
	Command string        `mapstructure:"command"`
	Args    []string      `mapstructure:"args"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Export selects the written formats.
type Export struct {
	JPG         bool `mapstructure:"jpg"`
	PNG         bool `mapstructure:"png"`
	JPEGQuality int  `mapstructure:"jpeg_quality"`
}

// Product describes what is being photographed.
type Product struct {
	Type string `mapstructure:"type"`
}

// Naming holds the output file naming rules.
type Naming struct {
	Heuristic       bool     `mapstructure:"heuristic"`
	Template        string   `mapstructure:"template"`
	TimestampLayout string   `mapstructure:"timestamp_layout"`
	BrandKeywords   []string `mapstructure:"brand_keywords"`
	UniqueSuffix    bool     `mapstructure:"unique_suffix"`
}

// Tags holds the fixed tags added to every manifest row.
type Tags struct {
	Base []string `mapstructure:"base"`
}

// Archive controls what happens to originals after processing.
type Archive struct {
	MoveOriginals bool `mapstructure:"move_originals"`
}

// Manifest holds the manifest naming settings.
type Manifest struct {
	Prefix string `mapstructure:"prefix"`
}

// Storage holds configuration for publishing outputs to an S3-compatible bucket.
type Storage struct {
	Enabled    bool   `mapstructure:"enabled"`
	Endpoint   string `mapstructure:"endpoint"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	BucketName string `mapstructure:"bucket_name"`
	UseSSL     bool   `mapstructure:"use_ssl"`
	Prefix     string `mapstructure:"prefix"`
}

// Kafka holds configuration for the Kafka message queue.
type Kafka struct {
	Brokers       []string `mapstructure:"brokers"`        // List of Kafka broker addresses
	EventsTopic   string   `mapstructure:"events_topic"`   // Topic for processed-item events
	EventsEnabled bool     `mapstructure:"events_enabled"` // Publish processed-item events
	RequestsTopic string   `mapstructure:"requests_topic"` // Topic consumed by `serve`
	GroupID       string   `mapstructure:"group_id"`       // Consumer group ID
}

// Retry defines retry policy configuration.
type Retry struct {
	Attempts int           `mapstructure:"attempts"` // Number of retry attempts
	Delay    time.Duration `mapstructure:"delay"`    // Initial delay between retries
	Backoff  float64       `mapstructure:"backoff"`  // Backoff multiplier for delays
}

// Log holds logger settings.
type Log struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("paths.input_dir", ".")
	v.SetDefault("paths.output_dir", "./output")
	v.SetDefault("paths.archive_dir", "")

	v.SetDefault("canvas.width", 1600)
	v.SetDefault("canvas.height", 1600)
	v.SetDefault("canvas.margin", 60)
	v.SetDefault("canvas.shadow", true)

	v.SetDefault("watermark.enabled", true)
	v.SetDefault("watermark.path", "")
	v.SetDefault("watermark.opacity", 0.08)
	v.SetDefault("watermark.scale", 0.4)

	v.SetDefault("background.remove", true)
	v.SetDefault("background.command", "rembg")
	v.SetDefault("background.args", []string{"i", "{input}", "{output}"})
	v.SetDefault("background.timeout", 2*time.Minute)

	v.SetDefault("export.jpg", true)
	v.SetDefault("export.png", false)
	v.SetDefault("export.jpeg_quality", 92)

	v.SetDefault("product.type", "custom hat")

	v.SetDefault("naming.heuristic", false)
	v.SetDefault("naming.template", "{product}-{colors}-{timestamp}")
	v.SetDefault("naming.timestamp_layout", naming.DefaultTimestampLayout)
	v.SetDefault("naming.brand_keywords", []string{})
	v.SetDefault("naming.unique_suffix", false)

	v.SetDefault("tags.base", processor.DefaultBaseTags)

	v.SetDefault("archive.move_originals", true)

	v.SetDefault("manifest.prefix", "km2_manifest")

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.bucket_name", "")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.prefix", "catalog")

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.events_topic", "catalog.processed")
	v.SetDefault("kafka.events_enabled", false)
	v.SetDefault("kafka.requests_topic", "catalog.batches")
	v.SetDefault("kafka.group_id", "catalog-studio")

	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.delay", 500*time.Millisecond)
	v.SetDefault("retry.backoff", 2.0)

	v.SetDefault("log.level", "info")
}

// mustBindEnv binds secrets that are conventionally supplied without the prefix.
//
// It panics if any environment variable cannot be bound.
func mustBindEnv(v *viper.Viper) {
	bindings := map[string]string{
		"storage.access_key": "MINIO_ACCESS_KEY",
		"storage.secret_key": "MINIO_SECRET_KEY",
	}

	for key, env := range bindings {
		if err := v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			zlog.Logger.Panic().Err(err).Msgf("failed to bind env %s", env)
		}
	}
}

// Load reads the configuration from path, falling back to defaults when path
// is empty. Environment variables override both.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	mustBindEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Processing builds the immutable per-run processing config and validates it.
func (c *Config) Processing() (model.ProcessingConfig, error) {
	pc := model.ProcessingConfig{
		Width:            c.Canvas.Width,
		Height:           c.Canvas.Height,
		Margin:           c.Canvas.Margin,
		Shadow:           c.Canvas.Shadow,
		Watermark:        c.Watermark.Enabled,
		WatermarkPath:    c.Watermark.Path,
		WatermarkOpacity: c.Watermark.Opacity,
		WatermarkScale:   c.Watermark.Scale,
		RemoveBackground: c.Background.Remove,
		ExportJPG:        c.Export.JPG,
		ExportPNG:        c.Export.PNG,
		JPEGQuality:      c.Export.JPEGQuality,
		ProductType:      c.Product.Type,
		Heuristic:        c.Naming.Heuristic,
		Template:         c.Naming.Template,
		TimestampLayout:  c.Naming.TimestampLayout,
		Keywords:         append([]string(nil), c.Naming.BrandKeywords...),
		UniqueSuffix:     c.Naming.UniqueSuffix,
		BaseTags:         append([]string(nil), c.Tags.Base...),
		ArchiveDir:       c.Paths.ArchiveDir,
		MoveOriginals:    c.Archive.MoveOriginals,
	}

	if err := pc.Validate(); err != nil {
		return model.ProcessingConfig{}, err
	}

	return pc, nil
}

// RetryStrategy returns the wbf retry strategy for external calls.
func (c *Config) RetryStrategy() retry.Strategy {
	return retry.Strategy{
		Attempts: c.Retry.Attempts,
		Delay:    c.Retry.Delay,
		Backoff:  c.Retry.Backoff,
	}
}

// ErrStorageConfig is returned when publishing is enabled without a bucket.
var ErrStorageConfig = errors.New("storage publishing requires endpoint and bucket_name")

// Validate checks the publishing settings when publishing is enabled.
func (s Storage) Validate() error {
	if !s.Enabled {
		return nil
	}
	if s.Endpoint == "" || s.BucketName == "" {
		return ErrStorageConfig
	}

	return nil
}
