package sink

import (
	"github.com/cockroachdb/errors"

	"github.com/osa030/walkbox/internal/infra/config"
)

// New creates a sink of the configured type.
func New(cfg config.SinkConfig, deps Deps) (Sink, error) {
	switch cfg.Type {
	case "http":
		s, err := NewHTTP(cfg.DeviceName, cfg.Settings, deps)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "speaker":
		s, err := NewSpeaker(cfg.Settings)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, errors.Newf("unsupported sink type: %s", cfg.Type)
	}
}
