package index

import "github.com/starford/folio/internal/models"

// PostIndex defines the interface for post indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type PostIndex interface {
	UpsertPost(p models.Post, body string, links []string) error
	DeletePost(path string) error
	GetChecksum(path string) (string, error)
	GetPost(path string) (*models.Post, error)
	GetPostBySlug(slug string) (*models.Post, error)
	ListPosts(opts ListOptions) ([]models.Post, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Backlinks(target string) ([]string, error)
	AllPaths() (map[string]struct{}, error)
	AllChecksums() (map[string]string, error)
	Count() (int, error)
	Close() error
}

// Verify *DB satisfies PostIndex at compile time.
var _ PostIndex = (*DB)(nil)
