package observability

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/dicewire/internal/logging"
)

// InitLogger configures the process logger for a long-running service and returns it.
func InitLogger(app string) zerolog.Logger {
	logging.ConfigureApp(app)
	return log.Logger
}
