package domain

// ResourceType identifies whether a resource is a file or a folder
type ResourceType string

const (
	ResourceFile   ResourceType = "file"
	ResourceFolder ResourceType = "folder"
)

// IsValid checks if the resource type is a known value
func (t ResourceType) IsValid() bool {
	switch t {
	case ResourceFile, ResourceFolder:
		return true
	}
	return false
}

// Resource is a single record of a flat file/folder listing.
// Path is the primary key of a collection and Name is its last segment.
type Resource struct {
	// ID is an optional identifier assigned by the backing store
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	// Name is the last "/"-separated segment of Path
	Name string `json:"name" yaml:"name"`

	// Path uniquely identifies the resource within its collection
	Path string `json:"path" yaml:"path"`

	// Type is either file or folder
	Type ResourceType `json:"type" yaml:"type"`

	// Empty marks folders known to have no children
	Empty bool `json:"empty,omitempty" yaml:"empty,omitempty"`
}

// IsFolder returns true if this resource is a folder
func (r Resource) IsFolder() bool {
	return r.Type == ResourceFolder
}

// IsFile returns true if this resource is a file
func (r Resource) IsFile() bool {
	return r.Type == ResourceFile
}

// TrashResource is a trashed resource together with its location in the
// virtual trash namespace. VirtualPath is derived on every query.
type TrashResource struct {
	Resource
	VirtualPath string `json:"virtualPath" yaml:"virtualPath"`
}
