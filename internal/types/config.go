package types

import (
	ierr "github.com/flexprice/revenue/internal/errors"
	"github.com/samber/lo"
)

type RunMode string

const (
	// ModeLocal is the mode for running against local fixtures
	ModeLocal RunMode = "local"
	// ModePreview is the mode used by the preview tool against live providers
	ModePreview RunMode = "preview"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// MetricsProviderType selects the metrics provider implementation
type MetricsProviderType string

const (
	MetricsProviderStatic MetricsProviderType = "static"
	MetricsProviderHTTP   MetricsProviderType = "http"
)

func (t MetricsProviderType) String() string {
	return string(t)
}

func (t MetricsProviderType) Validate() error {
	allowed := []MetricsProviderType{MetricsProviderStatic, MetricsProviderHTTP}
	if !lo.Contains(allowed, t) {
		return ierr.NewError("invalid metrics provider").
			WithHint("Metrics provider must be one of static, http").
			WithReportableDetails(map[string]any{
				"provider":          t,
				"allowed_providers": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
