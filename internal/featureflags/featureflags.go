package featureflags

import (
	"context"
	"fmt"
	"sync"

	"github.com/rollout/rox-go/v5/server"
)

// Flags is the container registered with Rollout
type Flags struct {
	Offline  server.RoxFlag
	LogLevel server.RoxString
}

var (
	mu    sync.Mutex
	rox   *server.Rox
	flags = &Flags{
		Offline:  server.NewRoxFlag(false),
		LogLevel: server.NewRoxString("info", []string{"debug", "info", "warn", "error"}),
	}
)

// Init registers the flag container and waits for the first fetch.
// With an empty key nothing is fetched and the defaults stay in effect.
func Init(ctx context.Context, apiKey string) error {
	mu.Lock()
	defer mu.Unlock()

	if apiKey == "" {
		return fmt.Errorf("no rollout key configured, using flag defaults")
	}
	if rox != nil {
		return nil
	}

	r := server.NewRox()
	r.Register("catalog", flags)

	select {
	case <-r.Setup(apiKey, server.NewRoxOptions(server.RoxOptionsBuilder{})):
		rox = r
		return nil
	case <-ctx.Done():
		r.Shutdown()
		return fmt.Errorf("rollout setup: %w", ctx.Err())
	}
}

// Offline reports whether the kill switch is on
func Offline() bool {
	return flags.Offline.IsEnabled(nil)
}

// LogLevel returns the log level the flag currently selects
func LogLevel() string {
	return flags.LogLevel.GetValue(nil)
}

// Shutdown stops the Rollout client if it was started
func Shutdown() {
	mu.Lock()
	defer mu.Unlock()

	if rox != nil {
		rox.Shutdown()
		rox = nil
	}
}
