// Copyright 2026 The Threadline Authors
// SPDX-License-Identifier: Apache-2.0

// threadline-links manages the symlinks that register Threadline's
// plugin assets with the host runtime: install points the host's
// plugin directory at the shipped assets, remove unlinks them, and
// status reports each asset's state. Regular files at a destination
// are compared by BLAKE3 content hash so local edits (drift) are
// never silently overwritten.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/threadline-dev/threadline/lib/links"
	"github.com/threadline-dev/threadline/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var hostDir string
	var assetsDir string
	var force bool

	flagSet := pflag.NewFlagSet("threadline-links", pflag.ContinueOnError)
	flagSet.StringVar(&hostDir, "host-dir", defaultHostDir(), "host plugin directory to link into")
	flagSet.StringVar(&assetsDir, "assets", "", "directory of shipped assets (default: assets/ next to the binary)")
	flagSet.BoolVar(&force, "force", false, "overwrite drifted files and foreign links")
	flagSet.BoolP("help", "h", false, "show help")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Println("threadline-links " + version.Info())
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	args := flagSet.Args()
	if len(args) != 1 {
		printHelp(flagSet)
		return fmt.Errorf("expected one command: install, remove, or status")
	}

	assets, err := discoverAssets(assetsDir)
	if err != nil {
		return err
	}
	manager := links.NewManager(hostDir)

	switch args[0] {
	case "install":
		statuses, err := manager.Install(assets, force)
		printStatuses(statuses)
		return err
	case "remove":
		statuses, err := manager.Remove(assets)
		printStatuses(statuses)
		return err
	case "status":
		statuses, err := manager.StatusAll(assets)
		printStatuses(statuses)
		return err
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// defaultHostDir is the host runtime's plugin directory.
func defaultHostDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".threadline/plugins"
	}
	return filepath.Join(home, ".threadline", "plugins")
}

// discoverAssets lists the shipped asset files. With no --assets
// flag, the assets/ directory next to the binary is used.
func discoverAssets(dir string) ([]links.Asset, error) {
	if dir == "" {
		executable, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locating binary for default assets dir: %w", err)
		}
		dir = filepath.Join(filepath.Dir(executable), "assets")
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading assets dir %s: %w", dir, err)
	}
	var assets []links.Asset
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		assets = append(assets, links.Asset{
			Name:   entry.Name(),
			Source: filepath.Join(dir, entry.Name()),
		})
	}
	if len(assets) == 0 {
		return nil, fmt.Errorf("no assets found in %s", dir)
	}
	return assets, nil
}

func printStatuses(statuses []links.Status) {
	for _, status := range statuses {
		line := fmt.Sprintf("%-10s %s", status.State, status.Asset.Name)
		if status.Target != "" {
			line += " -> " + status.Target
		}
		fmt.Println(line)
	}
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Println(`threadline-links — manage host plugin links

Usage:
  threadline-links [flags] install    link shipped assets into the host
  threadline-links [flags] remove     unlink assets (drifted files are kept)
  threadline-links [flags] status     report each asset's link state

Flags:`)
	fmt.Print(flagSet.FlagUsages())
}
