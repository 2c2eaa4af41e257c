package domain

// SourceType identifies the backend a resource collection is imported from
type SourceType string

const (
	SourceLocal  SourceType = "local"
	SourceGDrive SourceType = "gdrive"
)

// IsValid checks if the source type is a known value
func (t SourceType) IsValid() bool {
	switch t {
	case SourceLocal, SourceGDrive:
		return true
	}
	return false
}

// Source defines a location that can be imported into the resource store
type Source struct {
	// Name is the unique identifier and the root segment of imported paths
	Name string `mapstructure:"name"`

	// Type identifies the backend
	Type SourceType `mapstructure:"type"`

	// Root path within the backend
	Root string `mapstructure:"root"`

	// ClientID, ClientSecret and TokenPath configure OAuth (gdrive)
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	TokenPath    string `mapstructure:"token_path"`
}
