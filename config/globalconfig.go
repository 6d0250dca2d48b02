// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const AppName = "coinchart"
const configFileName = "globalconfig.yaml"
const configFileVersion = 1

// A file which cannot be parsed is kept with this suffix, the defaults are used instead.
const brokenFileSuffix = ".broken"

// ErrNewerFileVersion is returned for configuration files of a newer release.
// They are not touched, so that unknown settings are not lost.
var ErrNewerFileVersion = errors.New("configuration file is from a newer release")

type VersionConfig struct {
	FileVersion int
}

// configFile is the layout on disk, the version header comes first.
type configFile struct {
	VersionConfig `yaml:",inline"`
	AppConfig     `yaml:",inline"`
}

// GlobalConfig stores the application settings in a yaml file.
// It is loaded on first access.
type GlobalConfig struct {
	// Empty means the user configuration directory of the platform.
	configDir string
	loaded    bool
	appConfig AppConfig
	mutex     sync.Mutex
}

func NewGlobalConfig() Config {
	return NewGlobalConfigAt("")
}

// NewGlobalConfigAt stores the configuration file in the given directory.
func NewGlobalConfigAt(dir string) *GlobalConfig {
	return &GlobalConfig{
		configDir: dir,
		appConfig: NewAppConfig(),
	}
}

func (g *GlobalConfig) GetAppName() string {
	return AppName
}

// Lock locks access to the configuration and returns a copy which can be modified.
// Unlock needs to be called afterwards, if no error was returned.
func (g *GlobalConfig) Lock() (*AppConfig, error) {
	g.mutex.Lock()
	if err := g.ensureLoaded(); err != nil {
		g.mutex.Unlock()
		return nil, err
	}
	c := g.appConfig.deepCopy()
	return &c, nil
}

// Unlock stores the configuration and unlocks access.
// The file is only written if something was changed.
func (g *GlobalConfig) Unlock(c *AppConfig) error {
	defer g.mutex.Unlock()
	if cmp.Equal(g.appConfig, *c) {
		return nil
	}
	g.appConfig = *c
	return g.write()
}

func (g *GlobalConfig) Copy() (AppConfig, error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	if err := g.ensureLoaded(); err != nil {
		return AppConfig{}, err
	}
	return g.appConfig.deepCopy(), nil
}

func (g *GlobalConfig) ensureLoaded() error {
	if g.loaded {
		return nil
	}
	fileName, err := g.fileName()
	if err != nil {
		return err
	}
	if err = g.read(fileName); err != nil {
		return err
	}
	g.loaded = true
	return nil
}

func (g *GlobalConfig) fileName() (string, error) {
	dir := g.configDir
	if dir == "" {
		userConfigDir, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("unable to determine configuration path: %w", err)
		}
		dir = filepath.Join(userConfigDir, g.GetAppName())
	}
	return filepath.Join(dir, configFileName), nil
}

func (g *GlobalConfig) read(fileName string) error {
	data, err := os.ReadFile(fileName)
	if errors.Is(err, os.ErrNotExist) {
		log.Info().Str("file", fileName).Msg("configuration file does not yet exist, using defaults")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read configuration file: %w", err)
	}
	var version VersionConfig
	if err = yaml.Unmarshal(data, &version); err == nil && version.FileVersion > configFileVersion {
		return fmt.Errorf("%w: version %d, expected %d", ErrNewerFileVersion, version.FileVersion, configFileVersion)
	}
	file := configFile{AppConfig: NewAppConfig()}
	if err == nil {
		err = yaml.Unmarshal(data, &file)
	}
	if err != nil {
		// Starting with defaults is better than not showing any chart.
		log.Warn().Err(err).Str("file", fileName).Msg("invalid configuration file, using defaults")
		if err = os.Rename(fileName, fileName+brokenFileSuffix); err != nil {
			log.Warn().Err(err).Msg("could not keep invalid configuration file")
		}
		return nil
	}
	loaded := file.AppConfig.deepCopy()
	loaded.RestoreDefaults()
	file.AppConfig.Sanitize()
	if diff := cmp.Diff(loaded, file.AppConfig); diff != "" {
		log.Info().Str("diff", diff).Msg("replaced invalid configuration values")
	}
	g.appConfig = file.AppConfig
	return nil
}

func (g *GlobalConfig) write() error {
	fileName, err := g.fileName()
	if err != nil {
		return err
	}
	dir := filepath.Dir(fileName)
	if err = os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create configuration directory: %w", err)
	}
	g.appConfig.Sanitize()
	file := configFile{
		VersionConfig: VersionConfig{FileVersion: configFileVersion},
		AppConfig:     g.appConfig.deepCopy(),
	}
	file.AppConfig.RemoveDefaults()
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err = enc.Encode(&file); err != nil {
		return fmt.Errorf("error generating configuration: %w", err)
	}
	if err = enc.Close(); err != nil {
		return fmt.Errorf("error generating configuration: %w", err)
	}

	// Writing may fail, so we write to a temporary file and replace afterwards.
	tmp, err := os.CreateTemp(dir, configFileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}
	defer os.Remove(tmp.Name())
	_, err = tmp.Write(buf.Bytes())
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	if err = os.Rename(tmp.Name(), fileName); err != nil {
		return fmt.Errorf("failed to replace configuration file: %w", err)
	}
	return nil
}
