// Package buildinfo reports the version the outreach binary was built from.
package buildinfo

import (
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"
)

// These vars are set at build time via ldflags:
// -X github.com/otherjamesbrown/penf-outreach/pkg/buildinfo.Version=v0.3.0
// -X github.com/otherjamesbrown/penf-outreach/pkg/buildinfo.Commit=4f1c2ab
// -X github.com/otherjamesbrown/penf-outreach/pkg/buildinfo.BuildTime=2026-10-01T09:00:00Z
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info holds build information for a service.
type Info struct {
	ServiceName string `json:"service_name" yaml:"service_name"`
	Version     string `json:"version" yaml:"version"`
	Commit      string `json:"commit" yaml:"commit"`
	BuildTime   string `json:"build_time" yaml:"build_time"`
	GoVersion   string `json:"go_version" yaml:"go_version"`
}

// Get returns build info for the named service.
func Get(serviceName string) Info {
	return Info{
		ServiceName: serviceName,
		Version:     Version,
		Commit:      Commit,
		BuildTime:   BuildTime,
		GoVersion:   runtime.Version(),
	}
}

// String returns a human-readable one-liner like "v0.3.0 (4f1c2ab, 2026-10-01T09:00:00Z)"
func String() string {
	return Version + " (" + Commit + ", " + BuildTime + ")"
}

// Handler serves build info as JSON.
func Handler(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, Get(serviceName))
	}
}
