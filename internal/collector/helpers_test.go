package collector

import (
	"testing"

	"github.com/starford/taskcollector/internal/storage"
)

func mustStore(t *testing.T, dir string) *storage.FS {
	t.Helper()
	s, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return s
}
