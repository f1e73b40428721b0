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

// Wavebridge runs a block-size bridging audio node: host-sized cycles
// in, kernel-sized processing blocks inside, host-sized cycles out.
// Live mode drives the default audio device through PortAudio; offline
// mode renders a WAV file through the same pipeline.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/wavebridge/wavebridge-go/internal/audio"
	"github.com/wavebridge/wavebridge-go/internal/config"
	"github.com/wavebridge/wavebridge-go/internal/control"
	"github.com/wavebridge/wavebridge-go/internal/dsp"
	"github.com/wavebridge/wavebridge-go/internal/kernel"
	"github.com/wavebridge/wavebridge-go/internal/transport"
	"github.com/wavebridge/wavebridge-go/internal/wavfile"
)

type flags struct {
	configPath string
	nodeID     string
	natsURL    string
	kernelName string
	wavIn      string
	wavOut     string
}

func parseFlags(args []string) (*flags, error) {
	fs := flag.NewFlagSet("wavebridge", flag.ContinueOnError)
	f := &flags{}
	fs.StringVar(&f.configPath, "config", "", "path to YAML configuration file")
	fs.StringVar(&f.nodeID, "id", "", "node ID override")
	fs.StringVar(&f.natsURL, "nats", "", "NATS server URL override")
	fs.StringVar(&f.kernelName, "kernel", "", "kernel name override (gain, tone, passthrough)")
	fs.StringVar(&f.wavIn, "in", "", "input WAV file (offline mode)")
	fs.StringVar(&f.wavOut, "out", "", "output WAV file (offline mode)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if (f.wavIn == "") != (f.wavOut == "") {
		return nil, fmt.Errorf("offline mode needs both -in and -out")
	}
	return f, nil
}

// loadConfig resolves the effective configuration from the config file
// (or defaults) plus flag overrides.
func loadConfig(f *flags) (*config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if f.nodeID != "" {
		cfg.NodeID = f.nodeID
	}
	if f.natsURL != "" {
		cfg.NATSURL = f.natsURL
	}
	if f.kernelName != "" {
		cfg.Kernel.Name = f.kernelName
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildKernel instantiates the configured kernel against the shared
// control state.
func buildKernel(cfg *config.Config, state *control.State) (dsp.Kernel, error) {
	switch cfg.Kernel.Name {
	case "gain":
		return kernel.NewGain(cfg.Kernel.BlockSize, state)
	case "tone":
		return kernel.NewTone(cfg.Kernel.BlockSize, cfg.Audio.SampleRate, state)
	case "passthrough":
		return kernel.NewPassthrough(cfg.Kernel.BlockSize)
	default:
		return nil, fmt.Errorf("unknown kernel %q", cfg.Kernel.Name)
	}
}

func main() {
	f, err := parseFlags(os.Args[1:])
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	cfg, err := loadConfig(f)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	if f.wavIn != "" {
		if err := runOffline(cfg, f.wavIn, f.wavOut); err != nil {
			log.Fatalf("❌ Offline render failed: %v", err)
		}
		return
	}
	if err := runLive(cfg); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

func runOffline(cfg *config.Config, inPath, outPath string) error {
	inFile, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer inFile.Close()

	src, err := wavfile.OpenSource(inFile)
	if err != nil {
		return err
	}

	// The file dictates the stream shape; the config keeps kernel
	// selection and sizing.
	cfg.Audio.SampleRate = float64(src.SampleRate())
	cfg.Audio.Channels = src.Channels()

	state := control.NewState(cfg.Kernel.Params)
	state.SetGate(true) // no control plane offline, keep the gate open
	kern, err := buildKernel(cfg, state)
	if err != nil {
		return err
	}
	adapter, err := dsp.NewAdapter(kern, cfg.Audio.Channels, cfg.Kernel.BufferFrames)
	if err != nil {
		return err
	}

	outFile, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer outFile.Close()
	sink, err := wavfile.NewSink(outFile, src.SampleRate(), src.Channels())
	if err != nil {
		return err
	}

	log.Printf("🎛️  Rendering %s through %q (K=%d) at H=%d", inPath, cfg.Kernel.Name,
		cfg.Kernel.BlockSize, cfg.Audio.HostBlockSize)
	frames, err := wavfile.Pump(src, sink, adapter, cfg.Audio.HostBlockSize)
	if err != nil {
		return err
	}
	if err := sink.Close(); err != nil {
		return err
	}

	snap := adapter.Stats().Snapshot()
	log.Printf("✅ Rendered %d frames to %s (kernel runs: %d, errors: %d)",
		frames, outPath, snap.KernelRuns, snap.KernelErrors)
	return nil
}

func runLive(cfg *config.Config) error {
	state := control.NewState(cfg.Kernel.Params)
	kern, err := buildKernel(cfg, state)
	if err != nil {
		return err
	}
	adapter, err := dsp.NewAdapter(kern, cfg.Audio.Channels, cfg.Kernel.BufferFrames)
	if err != nil {
		return err
	}

	var sub *control.Subscriber
	if cfg.NATSURL != "" {
		sub, err = control.NewSubscriber(cfg.NATSURL, cfg.NodeID, state, adapter.Stop)
		if err != nil {
			return err
		}
		defer sub.Close()
		if err := sub.Start(); err != nil {
			return err
		}
	}

	node, err := audio.NewNode(audio.NewPortAudioBackend(), adapter, cfg.Audio.SampleRate, cfg.Audio.HostBlockSize)
	if err != nil {
		return err
	}

	var pub *transport.Publisher
	if cfg.Monitor {
		conn, err := transport.Dial(cfg.NATSURL)
		if err != nil {
			return err
		}
		defer conn.Close()
		pub, err = transport.NewPublisher(conn, cfg.NodeID, uint32(os.Getpid()), cfg.Audio.Channels, cfg.Audio.HostBlockSize, 16)
		if err != nil {
			return err
		}
		if err := pub.Start(cfg.Audio.SampleRate); err != nil {
			return err
		}
		node.SetTap(pub)
	}

	if err := node.Start(); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("🛑 Received %v, shutting down", sig)
		adapter.Stop()
	}()

	node.Wait()
	node.Shutdown()
	if pub != nil {
		pub.Close()
	}
	return nil
}
