package domain

// InputParser converts an untyped form-style record into a fully typed
// ClinicalInput. Parsing and validation of raw field values happen here, at
// the boundary; risk models never read string-keyed records directly.
type InputParser interface {
	Parse(record FormRecord) (*ClinicalInput, error)
}

// ConfigManager defines the interface for configuration management.
type ConfigManager interface {
	GetConfig() *Config
	Reload() error
	Validate() error
}
