// Copyright 2026 The Threadline Authors
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/jsonc"
)

// DestinationKind selects where export documents are sent.
type DestinationKind uint8

const (
	// DestinationNone drops every batch silently.
	DestinationNone DestinationKind = iota

	// DestinationFile appends documents to per-session files in a
	// directory.
	DestinationFile

	// DestinationHTTP posts documents to an HTTP(S) endpoint.
	DestinationHTTP

	// DestinationSocket writes documents to a Unix-domain socket.
	DestinationSocket
)

// String returns the destination kind name used in logs.
func (k DestinationKind) String() string {
	switch k {
	case DestinationNone:
		return "none"
	case DestinationFile:
		return "file"
	case DestinationHTTP:
		return "http"
	case DestinationSocket:
		return "socket"
	}
	return "unknown"
}

// Compile-time defaults. The default destination is a file directory
// under the user's Threadline data dir; batch and flush values match
// the documented settings-file defaults.
const (
	DefaultBatchSize     = 10
	DefaultFlushInterval = 5000 * time.Millisecond
	DefaultHTTPTimeout   = 10 * time.Second
)

// Config is one immutable resolved telemetry configuration:
// destination plus batching policy. Produced by [Resolver.Resolve];
// never mutated after resolution.
type Config struct {
	// Kind selects the destination type.
	Kind DestinationKind

	// Directory is the output directory for DestinationFile.
	Directory string

	// Endpoint is the URL for DestinationHTTP.
	Endpoint string

	// Headers are extra HTTP request headers. Only meaningful for
	// DestinationHTTP.
	Headers map[string]string

	// Timeout bounds one HTTP delivery. The request is aborted past
	// the deadline.
	Timeout time.Duration

	// Compress enables gzip Content-Encoding on HTTP deliveries.
	Compress bool

	// SocketPath is the Unix socket path for DestinationSocket.
	SocketPath string

	// BatchSize is the queue length that triggers an immediate
	// flush.
	BatchSize int

	// FlushInterval is the timer delay after which a non-empty queue
	// is flushed regardless of size.
	FlushInterval time.Duration
}

// settingsKey is the fixed key under which telemetry settings live in
// a Threadline settings file.
const settingsKey = "telemetry"

// settingsLayer is one file or environment layer. Pointer fields
// distinguish "absent" from "zero": a layer only overrides the fields
// it defines.
type settingsLayer struct {
	Export          *string           `json:"export"`
	Headers         map[string]string `json:"headers"`
	Timeout         *int64            `json:"timeout"`
	BatchSize       *int              `json:"batchSize"`
	FlushIntervalMs *int64            `json:"flushIntervalMs"`
	Compress        *bool             `json:"compress"`
}

// settingsFile is the full settings document; only the telemetry key
// is read here, other plugins own their own keys.
type settingsFile struct {
	Telemetry *settingsLayer `json:"telemetry"`
}

// Environment variable names. These override every file layer and can
// flip the destination type entirely.
const (
	EnvExport        = "THREADLINE_TELEMETRY_EXPORT"
	EnvHeaders       = "THREADLINE_TELEMETRY_HEADERS"
	EnvTimeoutMs     = "THREADLINE_TELEMETRY_TIMEOUT_MS"
	EnvBatchSize     = "THREADLINE_TELEMETRY_BATCH_SIZE"
	EnvFlushInterval = "THREADLINE_TELEMETRY_FLUSH_INTERVAL_MS"
	EnvCompress      = "THREADLINE_TELEMETRY_COMPRESS"
)

// DefaultDirectory returns the compile-time default file destination
// directory: ~/.threadline/telemetry, falling back to a relative path
// when the home directory is unknown.
func DefaultDirectory() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".threadline", "telemetry")
	}
	return filepath.Join(home, ".threadline", "telemetry")
}

// GlobalSettingsPath returns the global settings file location
// (~/.threadline/settings.json).
func GlobalSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".threadline", "settings.json")
	}
	return filepath.Join(home, ".threadline", "settings.json")
}

// ProjectSettingsPath returns the project settings file location for
// a working directory (<dir>/.threadline/settings.json).
func ProjectSettingsPath(dir string) string {
	return filepath.Join(dir, ".threadline", "settings.json")
}

// ResolverOptions configure a Resolver.
type ResolverOptions struct {
	// GlobalPath is the global settings file. Empty disables the
	// global layer.
	GlobalPath string

	// ProjectPath is the project settings file. Empty disables the
	// project layer.
	ProjectPath string

	// DefaultDirectory overrides the compile-time default file
	// destination directory. Empty uses [DefaultDirectory].
	DefaultDirectory string

	// Logger receives layer-skip diagnostics. Nil discards them.
	Logger *slog.Logger

	// Notify surfaces a transient user-visible notice when a config
	// file layer fails to parse or validate. Nil disables notices.
	Notify func(message string)
}

// Resolver produces [Config] values by layered merge: compile-time
// defaults ← global settings file ← project settings file ←
// environment variables. The global layer is read at construction.
// The project layer is applied by [Resolver.ApplyProject], once,
// idempotently, until [Resolver.ResetProject]; the telemetry plugin
// calls ApplyProject on every thread start. Environment variables are
// re-read on every [Resolver.Resolve] call, so the exporter picks up
// changes on each flush.
//
// A config file whose JSON fails to parse or validate is rejected for
// that layer only: the layer is skipped with a notice, lower-priority
// layers still apply.
type Resolver struct {
	mu               sync.Mutex
	base             Config // defaults + global (+ project once applied)
	projectPath      string
	projectApplied   bool
	defaultDirectory string
	logger           *slog.Logger
	notify           func(string)
}

// NewResolver builds a Resolver and applies the defaults and global
// layers.
func NewResolver(options ResolverOptions) *Resolver {
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	defaultDir := options.DefaultDirectory
	if defaultDir == "" {
		defaultDir = DefaultDirectory()
	}

	resolver := &Resolver{
		projectPath:      options.ProjectPath,
		defaultDirectory: defaultDir,
		logger:           logger,
		notify:           options.Notify,
	}
	resolver.base = Config{
		Kind:          DestinationFile,
		Directory:     defaultDir,
		Timeout:       DefaultHTTPTimeout,
		BatchSize:     DefaultBatchSize,
		FlushInterval: DefaultFlushInterval,
	}

	if options.GlobalPath != "" {
		resolver.applyFileLayer(options.GlobalPath, "global")
	}
	return resolver
}

// ApplyProject applies the project settings layer. Idempotent:
// re-application is a no-op until ResetProject is called.
func (r *Resolver) ApplyProject() {
	r.mu.Lock()
	applied := r.projectApplied
	r.projectApplied = true
	r.mu.Unlock()

	if applied || r.projectPath == "" {
		return
	}
	r.applyFileLayer(r.projectPath, "project")
}

// ResetProject allows the project layer to be applied again, e.g.
// after the working directory changed.
func (r *Resolver) ResetProject() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projectApplied = false
}

// SetProjectPath points the project layer at a different settings
// file. A changed path re-arms ApplyProject; the same path is a
// no-op.
func (r *Resolver) SetProjectPath(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if path != r.projectPath {
		r.projectPath = path
		r.projectApplied = false
	}
}

// Resolve returns the current configuration: the cached base layers
// with environment variables applied on top.
func (r *Resolver) Resolve() Config {
	r.mu.Lock()
	config := r.base
	config.Headers = cloneHeaders(r.base.Headers)
	r.mu.Unlock()

	applyEnvironment(&config, r.defaultDirectory)
	return config
}

// applyFileLayer reads, parses, validates, and merges one settings
// file into the base config. Missing files are silently fine; broken
// files skip the layer and surface a notice.
func (r *Resolver) applyFileLayer(path, name string) {
	layer, err := loadSettingsLayer(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return
		}
		r.logger.Warn("skipping telemetry config layer", "layer", name, "path", path, "error", err)
		if r.notify != nil {
			r.notify(fmt.Sprintf("telemetry: ignoring %s settings (%v)", name, err))
		}
		return
	}
	if layer == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	applyLayer(&r.base, *layer, r.defaultDirectory)
}

// loadSettingsLayer reads a settings file, tolerating JSONC comments
// and trailing commas, and returns its telemetry section. Returns
// (nil, nil) when the file has no telemetry key.
func loadSettingsLayer(path string) (*settingsLayer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file settingsFile
	if err := json.Unmarshal(jsonc.ToJSON(data), &file); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if file.Telemetry == nil {
		return nil, nil
	}
	if err := validateLayer(*file.Telemetry); err != nil {
		return nil, fmt.Errorf("validating %s: %w", path, err)
	}
	return file.Telemetry, nil
}

// validateLayer rejects values that would break the exporter. A
// failed validation skips the whole layer.
func validateLayer(layer settingsLayer) error {
	var errs []error
	if layer.BatchSize != nil && *layer.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batchSize must be positive, got %d", *layer.BatchSize))
	}
	if layer.FlushIntervalMs != nil && *layer.FlushIntervalMs <= 0 {
		errs = append(errs, fmt.Errorf("flushIntervalMs must be positive, got %d", *layer.FlushIntervalMs))
	}
	if layer.Timeout != nil && *layer.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must be non-negative, got %d", *layer.Timeout))
	}
	return errors.Join(errs...)
}

// applyLayer merges one layer into config. Each field overrides only
// when the layer defines it. Destination strings go through
// applyDestination, which owns the header-inheritance rule.
func applyLayer(config *Config, layer settingsLayer, defaultDir string) {
	if layer.Export != nil {
		applyDestination(config, *layer.Export, defaultDir)
	}
	if layer.Headers != nil {
		config.Headers = cloneHeaders(layer.Headers)
	}
	if layer.Timeout != nil {
		config.Timeout = time.Duration(*layer.Timeout) * time.Millisecond
	}
	if layer.BatchSize != nil {
		config.BatchSize = *layer.BatchSize
	}
	if layer.FlushIntervalMs != nil {
		config.FlushInterval = time.Duration(*layer.FlushIntervalMs) * time.Millisecond
	}
	if layer.Compress != nil {
		config.Compress = *layer.Compress
	}
}

// applyDestination parses a destination string into config. The
// grammar is lenient and never fails:
//
//	"none"          -> disabled
//	"file://<dir>"  -> file destination (default dir when empty)
//	"unix://<path>" -> socket destination (default file dest when empty)
//	"http(s)://..." -> HTTP destination
//	""              -> default file destination
//	anything else   -> file destination at that literal path
//
// Headers survive only HTTP→HTTP transitions: a later HTTP layer that
// changes just the URL inherits headers from the earlier HTTP layer,
// but a destination that passed through a non-HTTP kind starts with
// no headers. This asymmetry is deliberate; see the layering tests.
func applyDestination(config *Config, value string, defaultDir string) {
	wasHTTP := config.Kind == DestinationHTTP
	previousHeaders := config.Headers

	config.Directory = ""
	config.Endpoint = ""
	config.SocketPath = ""
	config.Headers = nil

	value = strings.TrimSpace(value)
	switch {
	case value == "none":
		config.Kind = DestinationNone

	case strings.HasPrefix(value, "file://"):
		config.Kind = DestinationFile
		config.Directory = strings.TrimPrefix(value, "file://")
		if config.Directory == "" {
			config.Directory = defaultDir
		}

	case strings.HasPrefix(value, "unix://"):
		path := strings.TrimPrefix(value, "unix://")
		if path == "" {
			config.Kind = DestinationFile
			config.Directory = defaultDir
		} else {
			config.Kind = DestinationSocket
			config.SocketPath = path
		}

	case strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://"):
		config.Kind = DestinationHTTP
		config.Endpoint = value
		if wasHTTP {
			config.Headers = previousHeaders
		}

	case value == "":
		config.Kind = DestinationFile
		config.Directory = defaultDir

	default:
		// Lenient fallback: a bare path is a file destination.
		config.Kind = DestinationFile
		config.Directory = value
	}
}

// applyEnvironment overlays environment variables onto config. The
// environment is the highest-priority layer and is consulted on
// every resolution.
func applyEnvironment(config *Config, defaultDir string) {
	var layer settingsLayer
	if value, ok := os.LookupEnv(EnvExport); ok {
		layer.Export = &value
	}
	if value, ok := os.LookupEnv(EnvHeaders); ok {
		layer.Headers = ParseHeaderList(value)
	}
	if value, ok := os.LookupEnv(EnvTimeoutMs); ok {
		if ms, err := strconv.ParseInt(value, 10, 64); err == nil && ms >= 0 {
			layer.Timeout = &ms
		}
	}
	if value, ok := os.LookupEnv(EnvBatchSize); ok {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			layer.BatchSize = &n
		}
	}
	if value, ok := os.LookupEnv(EnvFlushInterval); ok {
		if ms, err := strconv.ParseInt(value, 10, 64); err == nil && ms > 0 {
			layer.FlushIntervalMs = &ms
		}
	}
	if value, ok := os.LookupEnv(EnvCompress); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			layer.Compress = &b
		}
	}
	applyLayer(config, layer, defaultDir)
}

// ParseHeaderList parses "Key=Value,Key2=Value2" into a header map.
// Malformed entries (no "=") are dropped; an empty input returns an
// empty, non-nil map so it still counts as "defined" for layering.
func ParseHeaderList(value string) map[string]string {
	headers := make(map[string]string)
	for _, pair := range strings.Split(value, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, headerValue, found := strings.Cut(pair, "=")
		if !found || key == "" {
			continue
		}
		headers[strings.TrimSpace(key)] = strings.TrimSpace(headerValue)
	}
	return headers
}

func cloneHeaders(headers map[string]string) map[string]string {
	if headers == nil {
		return nil
	}
	clone := make(map[string]string, len(headers))
	for key, value := range headers {
		clone[key] = value
	}
	return clone
}
