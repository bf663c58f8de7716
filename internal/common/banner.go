package common

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner and logs the effective settings
func PrintBanner(config *Config, logger arbor.ILogger) {
	banner.PrintSimple("ContextLog", GetVersion())

	logger.Info().
		Str("version", GetFullVersion()).
		Str("address", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)).
		Str("provider", string(config.LLM.DefaultProvider)).
		Str("interval", config.Queue.Interval).
		Str("database", config.Storage.Badger.Path).
		Msg("ContextLog starting")
}
