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

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromReader_FullConfig(t *testing.T) {
	yaml := `
node_id: studio-a
nats_url: nats://broker:4222
monitor: true
audio:
  sample_rate: 44100
  channels: 1
  host_block_size: 256
kernel:
  name: tone
  block_size: 1024
  buffer_frames: 4096
  params:
    freq: 220
    level: 0.1
`
	cfg, err := LoadFromReader(strings.NewReader(yaml))
	require.NoError(t, err)

	assert.Equal(t, "studio-a", cfg.NodeID)
	assert.Equal(t, "nats://broker:4222", cfg.NATSURL)
	assert.True(t, cfg.Monitor)
	assert.Equal(t, 44100.0, cfg.Audio.SampleRate)
	assert.Equal(t, 1, cfg.Audio.Channels)
	assert.Equal(t, 256, cfg.Audio.HostBlockSize)
	assert.Equal(t, "tone", cfg.Kernel.Name)
	assert.Equal(t, 1024, cfg.Kernel.BlockSize)
	assert.Equal(t, 4096, cfg.Kernel.BufferFrames)
	assert.Equal(t, 220.0, cfg.Kernel.Params["freq"])
}

func TestLoadFromReader_DefaultsApply(t *testing.T) {
	// A minimal config leans on the defaults for everything it omits.
	cfg, err := LoadFromReader(strings.NewReader("node_id: tiny\n"))
	require.NoError(t, err)

	assert.Equal(t, "tiny", cfg.NodeID)
	assert.Equal(t, 48000.0, cfg.Audio.SampleRate)
	assert.Equal(t, 2, cfg.Audio.Channels)
	assert.Equal(t, 128, cfg.Audio.HostBlockSize)
	assert.Equal(t, "gain", cfg.Kernel.Name)
	assert.Equal(t, 512, cfg.Kernel.BlockSize)
}

func TestLoadFromReader_RejectsUnknownFields(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("node_id: x\nbogus_field: 1\n"))
	assert.Error(t, err)
}

func TestValidate_CollectsAllFailures(t *testing.T) {
	cfg := &Config{
		NodeID:  "",
		Monitor: true,
		Audio:   AudioConfig{SampleRate: 0, Channels: 0, HostBlockSize: 0},
		Kernel:  KernelConfig{Name: "fft", BlockSize: 0},
	}
	err := Validate(cfg)
	require.Error(t, err)

	msg := err.Error()
	for _, want := range []string{
		"node_id",
		"audio.sample_rate",
		"audio.channels",
		"audio.host_block_size",
		"kernel.name",
		"kernel.block_size",
		"monitor requires nats_url",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestValidate_BufferMustHoldKernelBlock(t *testing.T) {
	cfg := Default()
	cfg.Kernel.BufferFrames = 100
	cfg.Kernel.BlockSize = 512
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "buffer_frames")
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.yaml")
	require.NoError(t, os.WriteFile(path, []byte("node_id: from-file\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.NodeID)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
