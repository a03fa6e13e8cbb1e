package audio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"jobtalk/internal/application"
	"jobtalk/internal/domain"
)

// DirectoryDevice plays back recordings dropped into a directory, one file per
// recording. A file is renamed to *.processed once its recording ends.
type DirectoryDevice struct {
	dir          string
	pollInterval time.Duration
	logger       *slog.Logger

	mu        sync.Mutex
	processed map[string]bool
}

func NewDirectoryDevice(dir string, logger *slog.Logger) *DirectoryDevice {
	return &DirectoryDevice{
		dir:          dir,
		pollInterval: 500 * time.Millisecond,
		logger:       logger,
		processed:    make(map[string]bool),
	}
}

func (d *DirectoryDevice) Name() string {
	return "directory"
}

// Open waits for the next unprocessed audio file.
func (d *DirectoryDevice) Open(ctx context.Context) (application.AudioStream, error) {
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return nil, fmt.Errorf("creating audio dir: %w", err)
	}

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		stream, err := d.checkForNewFile()
		if err != nil {
			return nil, err
		}
		if stream != nil {
			return stream, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (d *DirectoryDevice) checkForNewFile() (*fileStream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, fmt.Errorf("reading dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		encoding, ok := domain.ParseEncoding(filepath.Ext(entry.Name()))
		if !ok {
			continue
		}

		path := filepath.Join(d.dir, entry.Name())
		if d.processed[path] {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading file %s: %w", path, err)
		}

		d.processed[path] = true
		d.logger.Info("picked up recording", "file", entry.Name(), "bytes", len(data))

		return &fileStream{path: path, encoding: encoding, data: data, logger: d.logger}, nil
	}

	return nil, nil
}

type fileStream struct {
	path     string
	encoding domain.Encoding
	data     []byte
	read     bool
	logger   *slog.Logger
}

func (f *fileStream) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.read {
		return nil, io.EOF
	}
	f.read = true
	return f.data, nil
}

func (f *fileStream) Encode(data []byte) (domain.AudioPayload, error) {
	return domain.NewAudioPayload(f.encoding, data)
}

func (f *fileStream) Close() error {
	if err := os.Rename(f.path, f.path+".processed"); err != nil {
		return fmt.Errorf("marking %s processed: %w", f.path, err)
	}
	return nil
}
