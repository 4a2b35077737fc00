package coordinator

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LineSource yields the lines of a named document.
type LineSource interface {
	Lines(ctx context.Context, name string) ([]string, error)
}

// FileSource reads documents from the local filesystem. When Dir is set,
// names are resolved inside it and may not escape it.
type FileSource struct {
	Dir string
}

// maxLineBytes bounds a single document line.
const maxLineBytes = 1 << 20

func (f FileSource) Lines(ctx context.Context, name string) ([]string, error) {
	path, err := f.resolve(name)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return lines, nil
}

func (f FileSource) resolve(name string) (string, error) {
	if f.Dir == "" {
		return name, nil
	}
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("document %q is outside %s", name, f.Dir)
	}
	return filepath.Join(f.Dir, name), nil
}
