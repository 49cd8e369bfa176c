package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/spf13/afero"
	"github.com/walteh/gokts/pkg/guidelines"
	"github.com/walteh/gokts/pkg/position"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

const (
	ColumnModeChars   = "chars"
	ColumnModeDisplay = "display"

	GuidelinesReplaceRanges = "replace-ranges"
	GuidelinesRanges        = "ranges"

	socketName = "socket"
	appDir     = "kak-tree-sitter"
)

var ErrInvalidConfig = errors.Base("invalid configuration")

// Config is the daemon configuration. Empty fields fall back to their defaults.
type Config struct {
	RuntimeDir       string `yaml:"runtime_dir,omitempty" hcl:"runtime_dir,optional"`
	Socket           string `yaml:"socket,omitempty" hcl:"socket,optional"`
	QueriesDir       string `yaml:"queries_dir,omitempty" hcl:"queries_dir,optional"`
	FallbackFace     string `yaml:"fallback_face,omitempty" hcl:"fallback_face,optional"`
	ColumnMode       string `yaml:"column_mode,omitempty" hcl:"column_mode,optional"`
	IndentGuidelines string `yaml:"indent_guidelines,omitempty" hcl:"indent_guidelines,optional"`
}

func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (me *Config) applyDefaults() {
	if me.RuntimeDir == "" {
		base := os.Getenv("XDG_RUNTIME_DIR")
		if base == "" {
			base = os.TempDir()
		}
		me.RuntimeDir = filepath.Join(base, appDir)
	}

	if me.QueriesDir == "" {
		base := os.Getenv("XDG_DATA_HOME")
		if base == "" {
			if home, err := os.UserHomeDir(); err == nil {
				base = filepath.Join(home, ".local", "share")
			}
		}
		me.QueriesDir = filepath.Join(base, appDir, "queries")
	}

	if me.FallbackFace == "" {
		me.FallbackFace = "unknown"
	}

	if me.ColumnMode == "" {
		me.ColumnMode = ColumnModeChars
	}

	if me.IndentGuidelines == "" {
		me.IndentGuidelines = GuidelinesReplaceRanges
	}
}

// Load reads a YAML (.yaml, .yml) or HCL configuration file. A missing file yields the
// defaults.
func Load(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, errors.Errorf("reading config file: %w", err)
	}

	var cfg Config

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, errors.Errorf("parsing YAML: %w", err)
		}
	} else {
		parser := hclparse.NewParser()
		hclFile, diags := parser.ParseHCL(data, path)
		if diags.HasErrors() {
			return nil, errors.Errorf("parsing HCL: %s", diags.Error())
		}

		ctx := &hcl.EvalContext{
			Variables: map[string]cty.Value{},
		}

		diags = gohcl.DecodeBody(hclFile.Body, ctx, &cfg)
		if diags.HasErrors() {
			return nil, errors.Errorf("decoding HCL: %s", diags.Error())
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (me *Config) Validate() error {
	var err error

	switch me.ColumnMode {
	case ColumnModeChars, ColumnModeDisplay:
	default:
		err = multierr.Append(err, errors.Errorf("column_mode %q, expected %q or %q", me.ColumnMode, ColumnModeChars, ColumnModeDisplay))
	}

	switch me.IndentGuidelines {
	case GuidelinesReplaceRanges, GuidelinesRanges:
	default:
		err = multierr.Append(err, errors.Errorf("indent_guidelines %q, expected %q or %q", me.IndentGuidelines, GuidelinesReplaceRanges, GuidelinesRanges))
	}

	if strings.Contains(me.FallbackFace, " ") {
		err = multierr.Append(err, errors.Errorf("fallback_face %q contains a space", me.FallbackFace))
	}

	if err != nil {
		return errors.WrapWith(err, ErrInvalidConfig)
	}

	return nil
}

// SocketPath is the daemon socket, inside the runtime directory unless overridden.
func (me *Config) SocketPath() string {
	if me.Socket != "" {
		return me.Socket
	}
	return filepath.Join(me.RuntimeDir, socketName)
}

func (me *Config) ColumnCounter() position.ColumnCounter {
	if me.ColumnMode == ColumnModeDisplay {
		return position.CountDisplayWidth
	}
	return position.CountChars
}

func (me *Config) GuidelineMode() guidelines.Mode {
	if me.IndentGuidelines == GuidelinesRanges {
		return guidelines.ModeRanges
	}
	return guidelines.ModeReplaceRanges
}

// DefaultPath is the configuration file looked up when none is given.
func DefaultPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		if home, err := os.UserHomeDir(); err == nil {
			base = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(base, appDir, "config.yaml")
}
