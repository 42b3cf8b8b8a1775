package profile

// Config carries the engine tunables. Components take it per call instead of
// reading module-level state.
type Config struct {
	// HalfLifeDays is the period over which a post's weight in the profile
	// aggregate halves.
	HalfLifeDays float64
	// ScoreFloor is the minimum meaningful raw similarity. Raw scores at or
	// below it display as 0.
	ScoreFloor float64
	// MaxMatchResults caps the resolved match list.
	MaxMatchResults int
	// EmbedDim is the embedding dimensionality of the deployment.
	EmbedDim int
}

func (c Config) withDefaults() Config {
	if c.HalfLifeDays <= 0 {
		c.HalfLifeDays = 30
	}
	if c.MaxMatchResults <= 0 {
		c.MaxMatchResults = 5
	}
	return c
}
