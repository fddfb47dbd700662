package tokentrim

import "tangled.org/tokentrim.app/tokentrim/bundle"

type config struct {
	codecConfig *bundle.Config
	logger      Logger
}

func defaultConfig() *config {
	return &config{
		codecConfig: bundle.DefaultConfig(),
	}
}

// Option configures the Codec
type Option func(*config)

// WithConfig replaces the codec settings wholesale
func WithConfig(cfg *Config) Option {
	return func(c *config) {
		if cfg != nil {
			cp := *cfg
			c.codecConfig = &cp
		}
	}
}

// WithMaxPayloadBytes sets the artifact size ceiling (0 disables it)
func WithMaxPayloadBytes(n int64) Option {
	return func(c *config) {
		c.codecConfig.MaxPayloadBytes = n
	}
}

// WithMaxDecodedBytes sets the ceiling on the total recorded size of a
// decoded archive (0 disables it)
func WithMaxDecodedBytes(n int64) Option {
	return func(c *config) {
		c.codecConfig.MaxDecodedBytes = n
	}
}

// WithCompression sets the compressor tried for lossless JSON bodies
func WithCompression(compression Compression) Option {
	return func(c *config) {
		c.codecConfig.Compression = compression
	}
}

// WithDigest sets the per-file digest algorithm
func WithDigest(alg DigestAlgorithm) Option {
	return func(c *config) {
		c.codecConfig.Digest = alg
	}
}

// WithWorkers bounds per-file parallelism
func WithWorkers(n int) Option {
	return func(c *config) {
		c.codecConfig.Workers = n
	}
}

// WithWrapWidth sets the base64 line width of text bundles
func WithWrapWidth(width int) Option {
	return func(c *config) {
		c.codecConfig.WrapWidth = width
	}
}

// WithLogger sets the logger used by sessions created from the Codec
func WithLogger(logger Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}
