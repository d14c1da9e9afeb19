package telemetry

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/grafana/pyroscope-go"
)

// ProfilingConfig configures Pyroscope continuous profiling.
type ProfilingConfig struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string

	// Endpoint is the Pyroscope server URL.
	Endpoint string

	// ProfileTypes names the profiles to collect; see ProfileTypeNames.
	ProfileTypes []string

	// Tags are attached to every profile, next to the version.
	Tags map[string]string
}

// DefaultProfilingConfig returns profiling disabled with CPU, heap and
// goroutine profiles preselected.
func DefaultProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		ServiceName:    serviceName,
		ServiceVersion: "dev",
		Endpoint:       "http://localhost:4040",
		ProfileTypes:   []string{"cpu", "inuse_space", "goroutines"},
	}
}

var profileTypes = map[string]pyroscope.ProfileType{
	"cpu":            pyroscope.ProfileCPU,
	"alloc_objects":  pyroscope.ProfileAllocObjects,
	"alloc_space":    pyroscope.ProfileAllocSpace,
	"inuse_objects":  pyroscope.ProfileInuseObjects,
	"inuse_space":    pyroscope.ProfileInuseSpace,
	"goroutines":     pyroscope.ProfileGoroutines,
	"mutex_count":    pyroscope.ProfileMutexCount,
	"mutex_duration": pyroscope.ProfileMutexDuration,
	"block_count":    pyroscope.ProfileBlockCount,
	"block_duration": pyroscope.ProfileBlockDuration,
}

// ProfileTypeNames lists the accepted ProfileTypes values.
func ProfileTypeNames() []string {
	names := make([]string, 0, len(profileTypes))
	for name := range profileTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	profilingMu      sync.Mutex
	profilingEnabled bool
)

// InitProfiling starts the profiler described by cfg and returns a function
// that stops it.
func InitProfiling(cfg ProfilingConfig) (shutdown func() error, err error) {
	if !cfg.Enabled {
		setProfiling(false)
		return func() error { return nil }, nil
	}

	types := make([]pyroscope.ProfileType, 0, len(cfg.ProfileTypes))
	for _, name := range cfg.ProfileTypes {
		pt, err := parseProfileType(name)
		if err != nil {
			return nil, fmt.Errorf("invalid profile type %q: %w", name, err)
		}
		types = append(types, pt)
		switch pt {
		case pyroscope.ProfileMutexCount, pyroscope.ProfileMutexDuration:
			runtime.SetMutexProfileFraction(5)
		case pyroscope.ProfileBlockCount, pyroscope.ProfileBlockDuration:
			runtime.SetBlockProfileRate(5)
		}
	}

	name := cfg.ServiceName
	if name == "" {
		name = serviceName
	}
	tags := map[string]string{"version": cfg.ServiceVersion}
	for k, v := range cfg.Tags {
		tags[k] = v
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: name,
		ServerAddress:   cfg.Endpoint,
		Tags:            tags,
		ProfileTypes:    types,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start Pyroscope profiler: %w", err)
	}
	setProfiling(true)

	return func() error {
		setProfiling(false)
		return profiler.Stop()
	}, nil
}

func setProfiling(on bool) {
	profilingMu.Lock()
	profilingEnabled = on
	profilingMu.Unlock()
}

// IsProfilingEnabled reports whether the profiler is running.
func IsProfilingEnabled() bool {
	profilingMu.Lock()
	defer profilingMu.Unlock()
	return profilingEnabled
}

func parseProfileType(name string) (pyroscope.ProfileType, error) {
	pt, ok := profileTypes[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("unknown profile type %q (valid: %s)", name, strings.Join(ProfileTypeNames(), ", "))
	}
	return pt, nil
}
