/*
 * This file is part of Wavebridge (https://github.com/wavebridge/wavebridge-go).
 * Copyright (C) 2026 Wavebridge Authors
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

// Package config loads and validates the bridge node's YAML
// configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// KernelNames lists the kernels the node can instantiate.
var KernelNames = []string{"gain", "tone", "passthrough"}

// Config is the full node configuration.
type Config struct {
	NodeID  string       `yaml:"node_id"`
	NATSURL string       `yaml:"nats_url"`
	Monitor bool         `yaml:"monitor"`
	Audio   AudioConfig  `yaml:"audio"`
	Kernel  KernelConfig `yaml:"kernel"`
}

// AudioConfig describes the host-side stream.
type AudioConfig struct {
	SampleRate    float64 `yaml:"sample_rate"`
	Channels      int     `yaml:"channels"`
	HostBlockSize int     `yaml:"host_block_size"`
}

// KernelConfig selects and parameterises the processing kernel.
type KernelConfig struct {
	Name         string             `yaml:"name"`
	BlockSize    int                `yaml:"block_size"`
	BufferFrames int                `yaml:"buffer_frames"`
	Params       map[string]float64 `yaml:"params"`
}

// Default returns a configuration with workable values for a stereo
// gain node.
func Default() *Config {
	return &Config{
		NodeID:  "bridge-1",
		NATSURL: "nats://localhost:4222",
		Audio: AudioConfig{
			SampleRate:    48000,
			Channels:      2,
			HostBlockSize: 128,
		},
		Kernel: KernelConfig{
			Name:      "gain",
			BlockSize: 512,
			Params:    map[string]float64{"gain": 1},
		},
	}
}

// Load reads the YAML configuration file at path and returns a
// validated Config. It is a convenience wrapper around LoadFromReader.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults for
// unset values and validates the result. Useful in tests where configs
// are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values. It
// returns a joined error listing all failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.NodeID == "" {
		errs = append(errs, errors.New("node_id must not be empty"))
	}
	if cfg.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %g must be positive", cfg.Audio.SampleRate))
	}
	if cfg.Audio.Channels <= 0 {
		errs = append(errs, fmt.Errorf("audio.channels %d must be positive", cfg.Audio.Channels))
	}
	if cfg.Audio.HostBlockSize <= 0 {
		errs = append(errs, fmt.Errorf("audio.host_block_size %d must be positive", cfg.Audio.HostBlockSize))
	}
	if !slices.Contains(KernelNames, cfg.Kernel.Name) {
		errs = append(errs, fmt.Errorf("kernel.name %q is unknown; valid values: %v", cfg.Kernel.Name, KernelNames))
	}
	if cfg.Kernel.BlockSize <= 0 {
		errs = append(errs, fmt.Errorf("kernel.block_size %d must be positive", cfg.Kernel.BlockSize))
	}
	if cfg.Kernel.BufferFrames < 0 {
		errs = append(errs, fmt.Errorf("kernel.buffer_frames %d must not be negative", cfg.Kernel.BufferFrames))
	}
	if cfg.Kernel.BufferFrames > 0 && cfg.Kernel.BlockSize > 0 && cfg.Kernel.BufferFrames < cfg.Kernel.BlockSize {
		errs = append(errs, fmt.Errorf("kernel.buffer_frames %d cannot hold one %d frame kernel block", cfg.Kernel.BufferFrames, cfg.Kernel.BlockSize))
	}
	if cfg.Monitor && cfg.NATSURL == "" {
		errs = append(errs, errors.New("monitor requires nats_url"))
	}

	return errors.Join(errs...)
}
