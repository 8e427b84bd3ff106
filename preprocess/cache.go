package preprocess

import (
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
)

// cache is the content-addressed cache backing "cached:true" filter
// steps: an in-process LRU in front of a directory of <tempDir>/<key>
// files, so cached results survive across preprocessor instances
// within a deploy and are cheap to re-fetch within one.
type cache struct {
	dir string
	mem *lru.Cache
}

func newCache(dir string, memSize int) (*cache, error) {
	mem, err := lru.New(memSize)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "creating cache dir %s", dir)
	}
	return &cache{dir: dir, mem: mem}, nil
}

func (c *cache) path(key string) string {
	return filepath.Join(c.dir, key)
}

func (c *cache) get(key string) ([]byte, bool) {
	if v, ok := c.mem.Get(key); ok {
		return v.([]byte), true
	}

	b, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}
	c.mem.Add(key, b)
	return b, true
}

func (c *cache) put(key string, content []byte) error {
	c.mem.Add(key, content)
	return os.WriteFile(c.path(key), content, 0644)
}
