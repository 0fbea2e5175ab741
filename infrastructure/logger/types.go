package logger

// Output encodings.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Config selects level, encoding and destinations.
type Config struct {
	Level       string
	Format      string
	Development bool
	OutputPaths []string
}

// SetDefaults fills unset fields: info level, JSON, stderr.
func (c *Config) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = FormatJSON
	}
	if len(c.OutputPaths) == 0 {
		c.OutputPaths = []string{"stderr"}
	}
}
