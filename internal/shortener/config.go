package shortener

// DefaultMaxExpirationDays caps caller supplied expirations when
// Config.MaxExpirationDays is not set.
const DefaultMaxExpirationDays = 3650

// Config holds the settings consumed by Service.
type Config struct {
	// DomainPrefix is prepended to a code to form the absolute short URL,
	// e.g. "https://s.example.com/".
	DomainPrefix string
	// DefaultExpirationDays must be positive for shortening to be enabled.
	DefaultExpirationDays int
	// MaxExpirationDays bounds caller supplied expirations; zero means
	// DefaultMaxExpirationDays.
	MaxExpirationDays int
	Enabled           bool
	MaxCodeLength     int
	// SecretSeed is mixed into auto-generated codes.
	SecretSeed int64
	// CollisionRetries is how many extra auto-generated codes are tried after
	// a collision. Zero surfaces the first collision to the caller.
	CollisionRetries int
	// ReservedCodes cannot be claimed as custom codes.
	ReservedCodes []string
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		DomainPrefix:          "http://localhost:8888/",
		DefaultExpirationDays: 7,
		MaxExpirationDays:     DefaultMaxExpirationDays,
		Enabled:               true,
		MaxCodeLength:         10,
		SecretSeed:            104729,
	}
}
