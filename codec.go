package tokentrim

import (
	"context"

	"tangled.org/tokentrim.app/tokentrim/bundle"
)

// Codec is the main entry point for encoding and decoding bundles
type Codec struct {
	config  *bundle.Config
	encoder *bundle.Encoder
	decoder *bundle.Decoder
	logger  Logger
}

// New creates a Codec with default settings overridden by opts
func New(opts ...Option) (*Codec, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.codecConfig.Validate(); err != nil {
		return nil, err
	}

	return &Codec{
		config:  cfg.codecConfig,
		encoder: bundle.NewEncoder(cfg.codecConfig),
		decoder: bundle.NewDecoder(cfg.codecConfig),
		logger:  cfg.logger,
	}, nil
}

// Config returns a copy of the codec settings
func (c *Codec) Config() Config {
	return *c.config
}

// Encode produces the artifact for mode
func (c *Codec) Encode(ctx context.Context, mode Mode, files []FileRecord) (*Artifact, error) {
	return c.encoder.Encode(ctx, mode, files)
}

// Decode reconstructs the files of an artifact
func (c *Codec) Decode(ctx context.Context, data []byte, mode Mode) (*DecodeResult, error) {
	return c.decoder.Decode(ctx, data, mode)
}

// BuildArchive converts file records into an archive without serializing it
func (c *Codec) BuildArchive(ctx context.Context, files []FileRecord) (*Archive, error) {
	return c.encoder.BuildArchive(ctx, files)
}

// NewSession creates a result store bound to this codec's decoder
func (c *Codec) NewSession() *Session {
	if c.logger != nil {
		return bundle.NewSession(c.decoder, bundle.WithSessionLogger(c.logger))
	}
	return bundle.NewSession(c.decoder)
}
