package gateway

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

type FilesMock struct {
	lock  sync.Mutex
	files map[string]string
}

func (c *FilesMock) UploadFile(ctx context.Context, fileID string, fileContent string) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.files == nil {
		c.files = make(map[string]string)
	}

	if _, ok := c.files[fileID]; ok {
		return nil
	}
	c.files[fileID] = fileContent

	return nil
}

func (c *FilesMock) DownloadFile(ctx context.Context, fileID string) (string, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	fileContent, ok := c.files[fileID]
	if !ok {
		return "", fmt.Errorf("file %s not found", fileID)
	}

	return fileContent, nil
}

// FileIDs returns the uploaded file ids in name order.
func (c *FilesMock) FileIDs() []string {
	c.lock.Lock()
	defer c.lock.Unlock()

	ids := make([]string, 0, len(c.files))
	for id := range c.files {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids
}
