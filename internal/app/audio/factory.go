package audio

import (
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/osa030/walkbox/internal/infra/config"
)

// New creates the delivery backend selected by configuration.
func New(cfg config.BackendConfig, fsys afero.Fs, out FrameWriter) (Backend, error) {
	zlog.Debug().Msgf("creating audio backend: type=%s settings=%+v", cfg.Type, cfg.Settings)

	switch cfg.Type {
	case "pull":
		b, err := NewPull(fsys, out, cfg.Settings)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "push":
		b, err := NewPush(fsys, out, cfg.Settings)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, errors.Newf("unsupported backend type: %s", cfg.Type)
	}
}
