package utils

import (
	"os"
	"path/filepath"
	"sync"
)

// TreeSize returns the total size in bytes of a file or directory tree.
// Only a failure to stat path itself is returned; children that cannot be
// listed or stat'd count as zero. A symlinked root is followed, but symlinks
// inside the tree count only their own size.
func TreeSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return info.Size(), nil
	}
	return dirSize(path), nil
}

func dirSize(dir string) int64 {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}

	var total int64
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.IsDir() {
			total += dirSize(filepath.Join(dir, entry.Name()))
		} else {
			total += info.Size()
		}
	}
	return total
}

// TreeSizes computes TreeSize for multiple paths concurrently.
// Paths whose root cannot be stat'd map to zero.
func TreeSizes(paths []string, concurrency int) map[string]int64 {
	if concurrency < 1 {
		concurrency = 1
	}

	result := make(map[string]int64, len(paths))
	var mu sync.Mutex
	var wg sync.WaitGroup

	sem := make(chan struct{}, concurrency)

	for _, p := range paths {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			size, _ := TreeSize(path)
			mu.Lock()
			result[path] = size
			mu.Unlock()
		}(p)
	}

	wg.Wait()
	return result
}
