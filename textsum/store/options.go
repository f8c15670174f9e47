package store

import (
	internal "github.com/egordm/TextSummarization/textsum"

	"github.com/rs/zerolog"
)

type options struct {
	logger zerolog.Logger
}

// Option configures a Store.
type Option func(*options)

// WithLogger sets the logger used for save/load diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func buildOptions(opts []Option) options {
	o := options{logger: internal.GetLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
