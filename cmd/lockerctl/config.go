// go-winnsen
// Copyright (c) 2025 The ParcelKiosk Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-winnsen.
//
// go-winnsen is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-winnsen is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-winnsen; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	winnsen "github.com/parcelkiosk/go-winnsen"
	"github.com/parcelkiosk/go-winnsen/detection"
)

// Config holds the lockerctl station configuration, loadable from a
// YAML file.
type Config struct {
	// Port pins an explicit serial port path, skipping USB discovery.
	Port string `yaml:"port"`

	// Device identity used for discovery when Port is empty.
	VendorID  uint16 `yaml:"vendor_id"`
	ProductID uint16 `yaml:"product_id"`
	PortIndex int    `yaml:"port_index"`

	BaudRate   int `yaml:"baud_rate"`
	TotalLocks int `yaml:"total_locks"`

	TimeoutMs    int `yaml:"timeout_ms"`
	MaxRetries   int `yaml:"max_retries"`
	RetryDelayMs int `yaml:"retry_delay_ms"`
}

// DefaultCLIConfig returns the production station configuration.
func DefaultCLIConfig() Config {
	return Config{
		VendorID:     detection.DefaultVendorID,
		ProductID:    detection.DefaultProductID,
		PortIndex:    detection.DefaultPortIndex,
		BaudRate:     winnsen.DefaultBaudRate,
		TotalLocks:   winnsen.DefaultTotalLocks,
		TimeoutMs:    int(winnsen.DefaultTimeout / time.Millisecond),
		MaxRetries:   winnsen.DefaultMaxRetries,
		RetryDelayMs: int(winnsen.DefaultRetryDelay / time.Millisecond),
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultCLIConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// DeviceConfig converts the CLI configuration into the library one.
func (c Config) DeviceConfig() *winnsen.Config {
	return &winnsen.Config{
		TotalLocks: c.TotalLocks,
		BaudRate:   c.BaudRate,
		Timeout:    time.Duration(c.TimeoutMs) * time.Millisecond,
		MaxRetries: c.MaxRetries,
		RetryDelay: time.Duration(c.RetryDelayMs) * time.Millisecond,
	}
}

// Selector converts the CLI configuration into a detection selector.
func (c Config) Selector() detection.Selector {
	return detection.Selector{
		VendorID:  c.VendorID,
		ProductID: c.ProductID,
		PortIndex: c.PortIndex,
		Blocklist: detection.DefaultBlocklist(),
	}
}
