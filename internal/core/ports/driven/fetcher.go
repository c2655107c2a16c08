package driven

import (
	"context"
	"encoding/json"
)

// Fetcher retrieves resources from the remote filing archive.
// Implementations share one request-rate budget across all callers.
type Fetcher interface {
	// Fetch returns the body at path, relative to the archive root.
	// Non-success statuses fail with *domain.RemoteFetchError.
	Fetch(ctx context.Context, path string) ([]byte, error)

	// ListDirectory fetches and decodes a JSON directory listing.
	ListDirectory(ctx context.Context, path string) (*DirectoryListing, error)
}

// DirectoryListing is the archive's JSON directory index.
type DirectoryListing struct {
	Directory struct {
		Name  string          `json:"name"`
		Items []DirectoryItem `json:"item"`
	} `json:"directory"`
}

// DirectoryItem is one entry of a directory listing.
type DirectoryItem struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Href string `json:"href"`
	Size string `json:"size,omitempty"`

	// LastModified is kept raw; the archive does not use one format.
	LastModified json.RawMessage `json:"last-modified,omitempty"`
}

// IsDir reports whether the item is a directory.
func (i DirectoryItem) IsDir() bool {
	return i.Type == "dir"
}
