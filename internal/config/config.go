package config

import (
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port           int    `envconfig:"PORT" default:"8080"`
	DatabaseURL    string `envconfig:"DATABASE_URL" default:""`
	JWTSecret      string `envconfig:"JWT_SECRET" default:"dev-secret-change-in-production"`
	PassphraseHash string `envconfig:"VIEWER_PASSPHRASE_HASH" default:""`
	DrawingDir     string `envconfig:"DRAWING_DIR" default:"./data/drawings"`
	PythonPath     string `envconfig:"PYTHON_PATH" default:""`
	ParserScript   string `envconfig:"PARSER_SCRIPT" default:"./python/parse_dxf.py"`
	RenderScript   string `envconfig:"RENDER_SCRIPT" default:"./python/render_dxf_svg.py"`
	AllowedOrigins string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	RendererConfig string `envconfig:"RENDERER_CONFIG" default:""`
	DebugLogSize   int    `envconfig:"DEBUG_LOG_SIZE" default:"500"`
	CacheEntries   int    `envconfig:"CACHE_ENTRIES" default:"64"`
	RenderMarkup   bool   `envconfig:"RENDER_MARKUP" default:"true"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Origins splits AllowedOrigins on commas.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
