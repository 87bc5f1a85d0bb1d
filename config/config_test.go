// config_test.go - multispool daemon configuration tests
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

package config

import (
	"io/ioutil"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigFromFile(t *testing.T) {
	require := require.New(t)

	dataDir, err := ioutil.TempDir("", "multispool_data")
	require.NoError(err)
	logDir, err := ioutil.TempDir("", "multispool_log")
	require.NoError(err)

	tomlConfigStr := `
DataDir = "` + dataDir + `"
LogDir = "` + logDir + `"
MaxSpoolCount = 42
LogLevel = "DEBUG"
`
	tmpConfigFile, err := ioutil.TempFile("", "configTomlTest")
	require.NoError(err, "TempFile failed")
	_, err = tmpConfigFile.Write([]byte(tomlConfigStr))
	require.NoError(err, "Write failed")

	cfg, err := FromFile(tmpConfigFile.Name())
	require.NoError(err, "FromFile failed")
	require.Equal(dataDir, cfg.DataDir)
	require.Equal(logDir, cfg.LogDir)
	require.Equal(42, cfg.MaxSpoolCount)

	require.NoError(cfg.Validate())
}

func TestConfigValidateRequiresExistingDirs(t *testing.T) {
	require := require.New(t)

	cfg := &Config{DataDir: "/does/not/exist", LogDir: "/does/not/exist"}
	require.Error(cfg.Validate())

	cfg = &Config{}
	require.Error(cfg.Validate())
}

func TestConfigValidateFillsDefaults(t *testing.T) {
	require := require.New(t)

	dataDir, err := ioutil.TempDir("", "multispool_data")
	require.NoError(err)
	logDir, err := ioutil.TempDir("", "multispool_log")
	require.NoError(err)

	cfg := &Config{DataDir: dataDir, LogDir: logDir}
	require.NoError(cfg.Validate())
	require.NotZero(cfg.MaxSpoolCount)
	require.NotEmpty(cfg.SocketPrefix)
	require.Equal("INFO", cfg.LogLevel)
}
