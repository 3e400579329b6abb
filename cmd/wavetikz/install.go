package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

func runInstall(args []string) {
	cfg := loadConfig()
	fs := flag.NewFlagSet("install", flag.ExitOnError)
	bindCommon(fs, &cfg)
	bindGeometry(fs, &cfg)
	fs.BoolVar(&cfg.Cache, "cache", cfg.Cache, "cache rendered diagrams")
	fs.StringVar(&cfg.Format, "format", cfg.Format, "default output format")
	fs.StringVar(&cfg.WatchSchedule, "schedule", cfg.WatchSchedule, "default watch schedule")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	dir := wavetikzDir()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		fatalf("cannot create %s: %v", dir, err)
	}

	data, _ := json.MarshalIndent(cfg, "", "  ")
	path := settingsPath()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fatalf("cannot write %s: %v", path, err)
	}
	fmt.Printf("Config written to %s\n", path)

	signalRunningServer()
}

// signalRunningServer sends SIGHUP to a running wavetikz server (via
// pidfile). Returns true if the server was signaled.
func signalRunningServer() bool {
	data, err := os.ReadFile(pidPath())
	if err != nil {
		return false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return false
	}
	if err := proc.Signal(syscall.SIGHUP); err != nil {
		return false
	}
	fmt.Printf("Signaled running server (PID %d) to reload configuration\n", pid)
	return true
}
