package scanner

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
)

// FrameSource is a lazy sequence of camera frames. NextFrame returns io.EOF when
// the sequence ends. Close releases the underlying device.
type FrameSource interface {
	NextFrame(ctx context.Context) (image.Image, error)
	Close() error
}

var ErrSourceClosed = errors.New("frame source closed")

// SliceSource replays a fixed list of frames.
type SliceSource struct {
	lock   sync.Mutex
	frames []image.Image
	pulled int
	closed bool
}

func NewSliceSource(frames ...image.Image) *SliceSource {
	return &SliceSource{frames: frames}
}

func (s *SliceSource) NextFrame(ctx context.Context) (image.Image, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed {
		return nil, ErrSourceClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pulled >= len(s.frames) {
		return nil, io.EOF
	}

	frame := s.frames[s.pulled]
	s.pulled++
	return frame, nil
}

// Pulled returns how many frames were handed out.
func (s *SliceSource) Pulled() int {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.pulled
}

func (s *SliceSource) Closed() bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.closed
}

func (s *SliceSource) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.closed = true
	return nil
}

var frameExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
}

// DirectorySource reads image files from a directory in name order. With a
// non-zero poll interval it keeps watching the directory for new files instead
// of ending the sequence.
type DirectorySource struct {
	dir  string
	poll time.Duration

	seen    map[string]struct{}
	pending []string
	closed  bool
}

func NewDirectorySource(dir string, poll time.Duration) *DirectorySource {
	return &DirectorySource{
		dir:  dir,
		poll: poll,
		seen: make(map[string]struct{}),
	}
}

// NextFrame skips files that cannot be decoded, a single bad frame never ends the sequence.
func (s *DirectorySource) NextFrame(ctx context.Context) (image.Image, error) {
	for {
		if s.closed {
			return nil, ErrSourceClosed
		}

		name, err := s.nextPending(ctx)
		if err != nil {
			return nil, err
		}

		frame, err := readFrame(filepath.Join(s.dir, name))
		if err != nil {
			log.FromContext(ctx).WithError(err).WithField("frame", name).Warn("Skipping unreadable frame")
			continue
		}

		return frame, nil
	}
}

func (s *DirectorySource) nextPending(ctx context.Context) (string, error) {
	for len(s.pending) == 0 {
		if err := s.scan(); err != nil {
			return "", err
		}
		if len(s.pending) > 0 {
			break
		}
		if s.poll == 0 {
			return "", io.EOF
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.poll):
		}
	}

	name := s.pending[0]
	s.pending = s.pending[1:]
	return name, nil
}

func (s *DirectorySource) scan() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("could not read frames directory %s: %w", s.dir, err)
	}

	var found []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if _, ok := frameExtensions[strings.ToLower(filepath.Ext(name))]; !ok {
			continue
		}
		if _, ok := s.seen[name]; ok {
			continue
		}

		s.seen[name] = struct{}{}
		found = append(found, name)
	}

	sort.Strings(found)
	s.pending = append(s.pending, found...)

	return nil
}

func (s *DirectorySource) Close() error {
	s.closed = true
	s.pending = nil
	return nil
}

func readFrame(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open frame %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("could not decode frame %s: %w", path, err)
	}

	return img, nil
}
