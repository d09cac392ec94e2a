package logging

import (
	"go.uber.org/zap"

	"github.com/sitegrid/sitegrid/pkg/config"
)

// New builds the process logger: JSON production output by default, the
// development console encoder for format "console".
func New(cfg config.LoggingConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zcfg.Level = level
	}
	return zcfg.Build()
}
