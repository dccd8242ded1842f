package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/martijn/snapchain/internal/core/domain"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Marker is the on-disk form of a repository marker file.
type Marker struct {
	SourceDir string   `mapstructure:"source_dir" yaml:"source_dir"`
	Storage   string   `mapstructure:"storage" yaml:"storage"`
	Engine    string   `mapstructure:"engine" yaml:"engine,omitempty"`
	Excludes  []string `mapstructure:"excludes" yaml:"excludes,omitempty"`
	Schedule  string   `mapstructure:"schedule" yaml:"schedule,omitempty"`
}

// LoadRepository reads the marker file in root. Every failure wraps
// domain.ErrConfiguration.
func LoadRepository(root string) (*domain.Repository, error) {
	path := filepath.Join(root, domain.MarkerFileName)

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("engine", string(domain.EngineRsync))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", domain.ErrConfiguration, path, err)
	}

	var m Marker
	if err := v.Unmarshal(&m); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal %s: %v", domain.ErrConfiguration, path, err)
	}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrConfiguration, path, err)
	}

	return m.Repository(root), nil
}

func (m *Marker) Validate() error {
	if m.SourceDir == "" {
		return fmt.Errorf("source_dir is required")
	}

	if m.Storage == "" {
		return fmt.Errorf("storage is required")
	}

	switch domain.EngineName(m.Engine) {
	case domain.EngineBorg, domain.EngineRsync:
	default:
		return fmt.Errorf("engine must be 'borg' or 'rsync', got: %s", m.Engine)
	}

	if m.Schedule != "" {
		if _, err := cron.ParseStandard(m.Schedule); err != nil {
			return fmt.Errorf("schedule is invalid: %w", err)
		}
	}

	return nil
}

// Repository resolves the marker's relative paths against root.
func (m *Marker) Repository(root string) *domain.Repository {
	return &domain.Repository{
		Root:      root,
		SourceDir: resolve(root, m.SourceDir),
		Storage:   resolve(root, m.Storage),
		Engine:    domain.EngineName(m.Engine),
		Excludes:  m.Excludes,
		Schedule:  m.Schedule,
	}
}

// WriteMarker creates the marker file in root. An existing marker is never
// overwritten.
func WriteMarker(root string, m *Marker) (string, error) {
	if m.Engine == "" {
		m.Engine = string(domain.EngineRsync)
	}
	if err := m.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to marshal marker: %w", err)
	}

	path := filepath.Join(root, domain.MarkerFileName)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return "", fmt.Errorf("%w: repository already initialized: %s", domain.ErrConfiguration, path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to create marker: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return "", fmt.Errorf("failed to write marker: %w", err)
	}
	return path, f.Sync()
}

func resolve(root, path string) string {
	if path == "~" || len(path) > 1 && path[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[1:])
		}
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(root, path)
}
