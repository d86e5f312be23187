package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig is the optional single-file configuration schema. Nested
// sections map one-to-one onto the flag namespace.
type FileConfig struct {
	Source struct {
		URL       string `yaml:"url" json:"url"`
		UserAgent string `yaml:"userAgent" json:"userAgent"`
	} `yaml:"source" json:"source"`

	Site struct {
		Dir string `yaml:"dir" json:"dir"`
	} `yaml:"site" json:"site"`

	Fetch struct {
		Timeout     duration `yaml:"timeout" json:"timeout"`
		MaxAttempts int      `yaml:"maxAttempts" json:"maxAttempts"`
	} `yaml:"fetch" json:"fetch"`

	Cache struct {
		Dir    string   `yaml:"dir" json:"dir"`
		MaxAge duration `yaml:"maxAge" json:"maxAge"`
		Clear  bool     `yaml:"clear" json:"clear"`
	} `yaml:"cache" json:"cache"`

	Table struct {
		MinScore int `yaml:"minScore" json:"minScore"`
		MinRows  int `yaml:"minRows" json:"minRows"`
	} `yaml:"table" json:"table"`

	Graph struct {
		MinScore      int   `yaml:"minScore" json:"minScore"`
		MaxImageBytes int64 `yaml:"maxImageBytes" json:"maxImageBytes"`
	} `yaml:"graph" json:"graph"`

	EnablePDF bool `yaml:"enablePDF" json:"enablePDF"`
	Verbose   bool `yaml:"verbose" json:"verbose"`
}

// duration decodes either a duration string like "30s" or an integer
// nanosecond count from YAML or JSON.
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		v, perr := time.ParseDuration(s)
		if perr != nil {
			return fmt.Errorf("parse duration %q: %w", s, perr)
		}
		*d = duration(v)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("parse duration: %w", err)
	}
	*d = duration(n)
	return nil
}

func (d *duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, perr := time.ParseDuration(s)
		if perr != nil {
			return fmt.Errorf("parse duration %q: %w", s, perr)
		}
		*d = duration(v)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("parse duration: %w", err)
	}
	*d = duration(n)
	return nil
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays file values into cfg for fields still at their
// defaults, so explicitly passed flags win over the config file.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	if (cfg.SourceURL == "" || cfg.SourceURL == DefaultSourceURL) && fc.Source.URL != "" {
		cfg.SourceURL = fc.Source.URL
	}
	if (cfg.UserAgent == "" || cfg.UserAgent == DefaultUserAgent) && fc.Source.UserAgent != "" {
		cfg.UserAgent = fc.Source.UserAgent
	}
	if (cfg.SiteDir == "" || cfg.SiteDir == DefaultSiteDir) && fc.Site.Dir != "" {
		cfg.SiteDir = fc.Site.Dir
	}
	if (cfg.Timeout == 0 || cfg.Timeout == DefaultTimeout) && fc.Fetch.Timeout > 0 {
		cfg.Timeout = time.Duration(fc.Fetch.Timeout)
	}
	if (cfg.MaxAttempts == 0 || cfg.MaxAttempts == DefaultMaxAttempts) && fc.Fetch.MaxAttempts > 0 {
		cfg.MaxAttempts = fc.Fetch.MaxAttempts
	}
	if (cfg.CacheDir == "" || cfg.CacheDir == DefaultCacheDir) && fc.Cache.Dir != "" {
		cfg.CacheDir = fc.Cache.Dir
	}
	if cfg.CacheMaxAge == 0 && fc.Cache.MaxAge > 0 {
		cfg.CacheMaxAge = time.Duration(fc.Cache.MaxAge)
	}
	if !cfg.CacheClear && fc.Cache.Clear {
		cfg.CacheClear = true
	}
	if cfg.TableMinScore == 0 && fc.Table.MinScore > 0 {
		cfg.TableMinScore = fc.Table.MinScore
	}
	if cfg.TableMinRows == 0 && fc.Table.MinRows > 0 {
		cfg.TableMinRows = fc.Table.MinRows
	}
	if (cfg.GraphMinScore == 0 || cfg.GraphMinScore == DefaultGraphMinScore) && fc.Graph.MinScore > 0 {
		cfg.GraphMinScore = fc.Graph.MinScore
	}
	if (cfg.ImageMaxBytes == 0 || cfg.ImageMaxBytes == DefaultImageMaxBytes) && fc.Graph.MaxImageBytes > 0 {
		cfg.ImageMaxBytes = fc.Graph.MaxImageBytes
	}
	if !cfg.EnablePDF && fc.EnablePDF {
		cfg.EnablePDF = true
	}
	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}
}

// ValidateConfig performs minimal validation before a run starts.
func ValidateConfig(cfg Config) error {
	src := strings.TrimSpace(cfg.SourceURL)
	if src == "" {
		return errors.New("config: source URL is required")
	}
	u, err := url.Parse(src)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("config: source URL must be http(s): %q", src)
	}
	if strings.TrimSpace(cfg.SiteDir) == "" {
		return errors.New("config: site dir is required")
	}
	if cfg.MaxAttempts < 0 || cfg.TableMinScore < 0 || cfg.TableMinRows < 0 || cfg.GraphMinScore < 0 || cfg.ImageMaxBytes < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	return nil
}
