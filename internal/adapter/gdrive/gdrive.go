package gdrive

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/Ning0612/Explorer/internal/adapter"
	"github.com/Ning0612/Explorer/internal/core/treepath"
	"github.com/Ning0612/Explorer/internal/domain"
	"github.com/Ning0612/Explorer/internal/logger"
	"github.com/Ning0612/Explorer/internal/progress"
)

const (
	// MimeTypeFolder is the MIME type for Google Drive folders
	MimeTypeFolder = "application/vnd.google-apps.folder"
	// PageSize is the number of files to fetch per request
	PageSize = 100
	// rootFolderID is Drive's alias for "My Drive"
	rootFolderID = "root"
)

// Adapter implements adapter.Source for a Google Drive folder
type Adapter struct {
	service  *drive.Service
	name     string
	root     string   // Root folder path in Drive (e.g., "/Shared/projects")
	cache    *idCache // path -> folder ID
	reporter progress.Reporter
}

var (
	_ adapter.Source    = (*Adapter)(nil)
	_ adapter.Reporting = (*Adapter)(nil)
)

// idCache caches folder ID lookups with thread-safe access
type idCache struct {
	mu    sync.RWMutex
	paths map[string]string
}

func newIDCache() *idCache {
	return &idCache{
		paths: make(map[string]string),
	}
}

func (c *idCache) get(path string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.paths[path]
	return id, ok
}

func (c *idCache) set(path, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths[path] = id
}

// New creates a Drive source from its configuration using the stored
// OAuth token
func New(ctx context.Context, src domain.Source) (*Adapter, error) {
	auth := NewAuthenticator(src.ClientID, src.ClientSecret, src.TokenPath)

	client, err := auth.Client(ctx, src.Name)
	if err != nil {
		return nil, err
	}

	return NewWithClient(ctx, src.Name, src.Root, client)
}

// NewWithClient creates a Drive source on top of an authenticated HTTP
// client. Extra options (such as an endpoint) are passed to the Drive
// service.
func NewWithClient(ctx context.Context, name, root string, client *http.Client, opts ...option.ClientOption) (*Adapter, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	service, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}

	return &Adapter{
		service:  service,
		name:     name,
		root:     normalizeRoot(root),
		cache:    newIDCache(),
		reporter: progress.NullReporter{},
	}, nil
}

// SetReporter implements adapter.Reporting
func (a *Adapter) SetReporter(r progress.Reporter) {
	if r == nil {
		r = progress.NullReporter{}
	}
	a.reporter = r
}

// normalizeRoot normalizes the root path
func normalizeRoot(root string) string {
	root = strings.TrimSpace(root)
	if root == "" || root == "/" {
		return ""
	}
	// Ensure leading slash, no trailing slash
	if !strings.HasPrefix(root, "/") {
		root = "/" + root
	}
	return strings.TrimSuffix(root, "/")
}

type pendingFolder struct {
	id   string
	path string
}

// Walk implements adapter.Source. Folders are listed breadth first; the
// resource ID is the Drive file ID.
func (a *Adapter) Walk(ctx context.Context) ([]domain.Resource, error) {
	log := logger.With("source", a.name)

	rootID, err := a.getFolderID(ctx, a.root)
	if err != nil {
		return nil, err
	}

	resources := []domain.Resource{
		{ID: rootID, Name: a.name, Path: a.name, Type: domain.ResourceFolder},
	}
	queue := []pendingFolder{{id: rootID, path: a.name}}

	for len(queue) > 0 {
		folder := queue[0]
		queue = queue[1:]

		files, err := a.listChildren(ctx, folder.id)
		if err != nil {
			return nil, err
		}

		names := newNameSet()
		for _, f := range files {
			name := names.claim(f.Name)
			if name != f.Name {
				log.Warn("renamed conflicting drive entry", "parent", folder.path, "name", f.Name, "as", name)
			}

			r := domain.Resource{
				ID:   f.Id,
				Name: name,
				Path: treepath.Join(folder.path, name),
				Type: domain.ResourceFile,
			}
			if f.MimeType == MimeTypeFolder {
				r.Type = domain.ResourceFolder
				queue = append(queue, pendingFolder{id: f.Id, path: r.Path})
			}
			resources = append(resources, r)
			a.reporter.Found(r.Path)
		}
	}

	adapter.MarkEmpty(resources)
	log.Debug("walk complete", "resources", len(resources))
	return resources, nil
}

// listChildren returns every non-trashed child of a folder
func (a *Adapter) listChildren(ctx context.Context, folderID string) ([]*drive.File, error) {
	var result []*drive.File
	pageToken := ""

	for {
		query := fmt.Sprintf("'%s' in parents and trashed = false", escapeQueryString(folderID))
		call := a.service.Files.List().
			Q(query).
			PageSize(PageSize).
			OrderBy("folder,name").
			Fields("nextPageToken, files(id, name, mimeType)")

		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		fileList, err := call.Context(ctx).Do()
		if err != nil {
			return nil, mapError(err)
		}

		result = append(result, fileList.Files...)

		pageToken = fileList.NextPageToken
		if pageToken == "" {
			return result, nil
		}
	}
}

// Close releases any resources
func (a *Adapter) Close() error {
	return nil
}

// escapeQueryString escapes special characters in Drive query strings
func escapeQueryString(s string) string {
	// Escape backslash first, then single quote
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "'", "\\'")
	return s
}

// getFolderID resolves a normalized Drive path to a folder ID without
// creating anything
func (a *Adapter) getFolderID(ctx context.Context, fullPath string) (string, error) {
	if fullPath == "" {
		return rootFolderID, nil
	}
	if id, ok := a.cache.get(fullPath); ok {
		return id, nil
	}

	parts := strings.Split(strings.TrimPrefix(fullPath, "/"), "/")
	currentID := rootFolderID

	for i, part := range parts {
		if part == "" {
			continue
		}

		partialPath := "/" + strings.Join(parts[:i+1], "/")
		if id, ok := a.cache.get(partialPath); ok {
			currentID = id
			continue
		}

		query := fmt.Sprintf("name = '%s' and '%s' in parents and mimeType = '%s' and trashed = false",
			escapeQueryString(part), currentID, MimeTypeFolder)
		fileList, err := a.service.Files.List().
			Q(query).
			PageSize(1).
			Fields("files(id)").
			Context(ctx).Do()
		if err != nil {
			return "", mapError(err)
		}

		if len(fileList.Files) == 0 {
			return "", fmt.Errorf("%w: %s", domain.ErrNotFound, partialPath)
		}

		currentID = fileList.Files[0].Id
		a.cache.set(partialPath, currentID)
	}

	return currentID, nil
}

// nameSet gives each child of one folder a distinct name. Drive allows
// siblings with the same name and names containing "/", neither of which
// fits a path-keyed collection.
type nameSet map[string]struct{}

func newNameSet() nameSet {
	return make(nameSet)
}

func (s nameSet) claim(name string) string {
	name = strings.ReplaceAll(name, treepath.Separator, "_")
	if name == "" {
		name = "_"
	}

	candidate := name
	for n := 2; ; n++ {
		if _, taken := s[candidate]; !taken {
			s[candidate] = struct{}{}
			return candidate
		}
		candidate = fmt.Sprintf("%s (%d)", name, n)
	}
}

// mapError converts Google API errors to domain errors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", domain.ErrNotFound, apiErr.Message)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s", domain.ErrPermissionDenied, apiErr.Message)
		case http.StatusConflict:
			return domain.ErrAlreadyExists
		case http.StatusTooManyRequests:
			return fmt.Errorf("rate limit exceeded: %w", err)
		}
	}

	// Fallback to string matching for non-googleapi errors
	if strings.Contains(err.Error(), "notFound") {
		return domain.ErrNotFound
	}

	return err
}
