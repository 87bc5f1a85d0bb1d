// config.go - multispool daemon configuration
// Copyright (C) 2017  David Anthony Stainton
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package config provides multispool daemon configuration utilities.
package config

import (
	"errors"
	"io/ioutil"
	"os"

	"github.com/pelletier/go-toml"
	"gopkg.in/op/go-logging.v1"

	"github.com/katzenpost/multispool/constants"
)

var log = logging.MustGetLogger("multispoold")

// Config holds every tunable of the multispool daemon. DataDir and LogDir
// are required, per spec.md section 6, and may come from the config file,
// from CLI flags, or both; a flag always overrides the same field loaded
// from a config file.
type Config struct {
	// DataDir is the base directory under which the spool set and every
	// spool's backing database live.
	DataDir string

	// LogDir is the daemon's log directory. Validate checks that it
	// exists; the daemon itself logs to stderr and writes no file here.
	LogDir string

	// MaxSpoolCount caps the number of live spools MultiSpool will hold.
	// Zero means constants.DefaultMaxSpoolCount.
	MaxSpoolCount int

	// SocketPrefix overrides the default "multispool_" prefix used when
	// generating the plugin's Unix domain socket filename.
	SocketPrefix string

	// LogLevel is one of DEBUG, INFO, NOTICE, WARNING, ERROR, CRITICAL.
	LogLevel string
}

// FromFile loads a Config from a TOML file, the way the teacher's client
// configuration is loaded (config.FromFile), adapted to the daemon's
// smaller, flatter field set.
func FromFile(fileName string) (*Config, error) {
	cfg := Config{}
	fileData, err := ioutil.ReadFile(fileName)
	if err != nil {
		return nil, err
	}
	if err := toml.Unmarshal(fileData, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that DataDir and LogDir are set and are existing
// directories, per spec.md section 6's startup validation requirement,
// and fills in defaults for any unset tunable.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("config: data_dir must be set")
	}
	if c.LogDir == "" {
		return errors.New("config: log_dir must be set")
	}
	if err := mustBeDir(c.DataDir); err != nil {
		return err
	}
	if err := mustBeDir(c.LogDir); err != nil {
		return err
	}
	if c.MaxSpoolCount <= 0 {
		c.MaxSpoolCount = constants.DefaultMaxSpoolCount
	}
	if c.SocketPrefix == "" {
		c.SocketPrefix = constants.SocketPrefix
	}
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	return nil
}

func mustBeDir(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return errors.New("config: " + path + " is not a directory")
	}
	return nil
}
