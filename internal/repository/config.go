package repository

// Config holds the table-level settings shared by the store implementations.
type Config struct {
	TableName string
}

// NewConfig creates a repository configuration.
func NewConfig(tableName string) Config {
	return Config{TableName: tableName}.WithDefaults()
}

// WithDefaults fills in development defaults for unset fields.
func (c Config) WithDefaults() Config {
	if c.TableName == "" {
		c.TableName = "polymath-dev"
	}
	return c
}
