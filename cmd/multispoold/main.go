// main.go - multispoold, the multispool plugin daemon.
// Copyright (C) 2019  David Anthony Stainton.
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

// Package main provides multispoold, a Katzenpost plugin process serving
// the multispool engine over a Unix domain socket.
package main

import (
	"crypto/rand"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"unsafe"

	"gopkg.in/op/go-logging.v1"

	"github.com/katzenpost/multispool/config"
	"github.com/katzenpost/multispool/constants"
	"github.com/katzenpost/multispool/plugin"
	"github.com/katzenpost/multispool/spool"
)

var log = logging.MustGetLogger("multispoold")

var logFormat = logging.MustStringFormatter(
	"%{level:.4s} %{id:03x} %{message}",
)
var ttyFormat = logging.MustStringFormatter(
	"%{color}%{time:15:04:05} ▶ %{level:.4s} %{id:03x}%{color:reset} %{message}",
)

const ioctlReadTermios = 0x5401

func isTerminal(fd int) bool {
	var termios syscall.Termios
	_, _, err := syscall.Syscall6(syscall.SYS_IOCTL, uintptr(fd), ioctlReadTermios, uintptr(unsafe.Pointer(&termios)), 0, 0, 0)
	return err == 0
}

func stringToLogLevel(level string) (logging.Level, error) {
	switch level {
	case "DEBUG":
		return logging.DEBUG, nil
	case "INFO":
		return logging.INFO, nil
	case "NOTICE":
		return logging.NOTICE, nil
	case "WARNING":
		return logging.WARNING, nil
	case "ERROR":
		return logging.ERROR, nil
	case "CRITICAL":
		return logging.CRITICAL, nil
	}
	return -1, fmt.Errorf("invalid logging level %s", level)
}

func setupLoggerBackend(level logging.Level) logging.LeveledBackend {
	format := logFormat
	if isTerminal(int(os.Stderr.Fd())) {
		format = ttyFormat
	}
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	formatter := logging.NewBackendFormatter(backend, format)
	leveler := logging.AddModuleLevel(formatter)
	leveler.SetLevel(level, "multispoold")
	return leveler
}

// randomSocketSuffix draws n alphanumeric characters for the plugin
// socket's filename, the way a Katzenpost plugin process picks an
// unpredictable per-run path under /tmp.
func randomSocketSuffix(n int) (string, error) {
	const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf), nil
}

func main() {
	var configFilePath string
	var dataDir string
	var logDir string
	var logLevel string

	flag.StringVar(&configFilePath, "config", "", "configuration file")
	flag.StringVar(&dataDir, "data_dir", "", "data directory (overrides config file)")
	flag.StringVar(&logDir, "log_dir", "", "log directory (overrides config file)")
	flag.StringVar(&logLevel, "log_level", "", "logging level: DEBUG, INFO, NOTICE, WARNING, ERROR, CRITICAL")
	flag.Parse()

	cfg := &config.Config{}
	if configFilePath != "" {
		var err error
		cfg, err = config.FromFile(configFilePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if logDir != "" {
		cfg.LogDir = logDir
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	level, err := stringToLogLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging level: %v\n", err)
		os.Exit(1)
	}
	log.SetBackend(setupLoggerBackend(level))

	log.Notice("multispoold startup")

	engine, err := spool.New(cfg.DataDir, cfg.MaxSpoolCount)
	if err != nil {
		log.Criticalf("failed to open spool engine: %v", err)
		os.Exit(1)
	}
	defer engine.Close()

	suffix, err := randomSocketSuffix(10)
	if err != nil {
		log.Criticalf("failed to generate socket name: %v", err)
		os.Exit(1)
	}
	socketPath := filepath.Join(os.TempDir(), cfg.SocketPrefix+suffix+".sock")

	srv := plugin.NewServer(engine, cfg.MaxSpoolCount, log)
	if err := srv.Listen(socketPath); err != nil {
		log.Criticalf("failed to listen on %s: %v", socketPath, err)
		os.Exit(1)
	}
	defer srv.Halt()

	// Handshake line consumed by the process that spawned this plugin:
	// protocol-version|plugin-version|network|address|transport-scheme.
	fmt.Printf("%d|%d|unix|%s|http\n", constants.CoreProtocolVersion, constants.PluginProtocolVersion, socketPath)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Notice("multispoold shutdown")
}
