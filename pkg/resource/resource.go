// SPDX-License-Identifier: MPL-2.0

// Package resource copies external files into an archive before its
// manifest is computed and exposes them to the analyzer as classpath
// entries.
package resource

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/zhanleewo/fuse/pkg/archive"
)

// TempPattern names the temporary files holding downloaded resources.
const TempPattern = "fabric-analyser-jar-*.jar"

// cacheKey separates cache file names from other BLAKE3 uses.
const cacheKey = "fabwrap/resource-cache/v1/blake3"

// ErrInvalidResource is returned by ParseResource for malformed specs.
var ErrInvalidResource = errors.New("invalid resource")

type (
	// Resource is an external file to place inside the archive at Path.
	// Source is a local path or a file, http or https URL.
	Resource struct {
		Path   string
		Source string
	}

	// Embedder copies resources into archives. The zero value is usable:
	// it fetches with http.DefaultClient and removes downloads when the
	// archive closes.
	Embedder struct {
		// Client fetches remote sources.
		Client *http.Client
		// CacheDir, when set, keeps downloads across runs, named by the
		// BLAKE3 hash of their URL.
		CacheDir string
		// TempDir holds uncached downloads; "" means os.TempDir.
		TempDir string
	}
)

// ParseResource parses the `path=source` form used on the command line.
func ParseResource(s string) (Resource, error) {
	dst, src, ok := strings.Cut(s, "=")
	dst, src = strings.TrimPrefix(strings.TrimSpace(dst), "/"), strings.TrimSpace(src)
	if !ok || dst == "" || src == "" {
		return Resource{}, fmt.Errorf("%w: %q: want path=source", ErrInvalidResource, s)
	}
	return Resource{Path: dst, Source: src}, nil
}

// String returns the `path=source` form.
func (r Resource) String() string { return r.Path + "=" + r.Source }

// Embed puts every resource into a, in order, and returns one local file per
// resource that could be materialized, for use as analyzer classpath.
// Failures are logged and skip only the affected step of that resource.
func (e *Embedder) Embed(ctx context.Context, a *archive.Archive, resources []Resource) []string {
	var classpath []string
	for _, r := range resources {
		src, err := e.locate(r.Source)
		if err != nil {
			slog.Warn("resource cannot be embedded", "path", r.Path, "source", r.Source, "error", err)
			continue
		}

		data, err := e.read(ctx, src)
		if err != nil {
			slog.Warn("resource cannot be embedded", "path", r.Path, "source", r.Source, "error", err)
		} else if err := a.Put(r.Path, data); err != nil {
			slog.Warn("resource cannot be embedded", "path", r.Path, "source", r.Source, "error", err)
		}

		file, err := e.classpathFile(a, src, data)
		if err != nil {
			slog.Warn("resource cannot be added to the classpath", "source", r.Source, "error", err)
			continue
		}
		slog.Debug("resource embedded", "path", r.Path, "classpath", file)
		classpath = append(classpath, file)
	}
	return classpath
}

type source struct {
	local  string
	remote *url.URL
	cached string
}

func (e *Embedder) locate(raw string) (source, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// Plain paths, including Windows drive letters.
		return source{local: raw}, nil
	}
	switch strings.ToLower(u.Scheme) {
	case "file":
		return source{local: filepath.FromSlash(u.Path)}, nil
	case "http", "https":
		s := source{remote: u}
		if e.CacheDir != "" {
			s.cached = filepath.Join(e.CacheDir, cacheName(raw))
		}
		return s, nil
	default:
		return source{}, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
}

func (e *Embedder) read(ctx context.Context, s source) ([]byte, error) {
	if s.local != "" {
		return os.ReadFile(s.local)
	}
	if s.cached != "" {
		if data, err := os.ReadFile(s.cached); err == nil {
			return data, nil
		}
	}
	return e.download(ctx, s.remote)
}

func (e *Embedder) download(ctx context.Context, u *url.URL) (data []byte, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	client := e.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status: %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// classpathFile returns a local file holding the resource. Remote data is
// written to the cache or to a temp file removed when a is closed.
func (e *Embedder) classpathFile(a *archive.Archive, s source, data []byte) (string, error) {
	if s.local != "" {
		if _, err := os.Stat(s.local); err != nil {
			return "", err
		}
		return s.local, nil
	}
	if data == nil {
		return "", errors.New("resource was not downloaded")
	}

	if s.cached != "" {
		if _, err := os.Stat(s.cached); err == nil {
			return s.cached, nil
		}
		if err := writeAtomic(s.cached, data); err != nil {
			return "", err
		}
		return s.cached, nil
	}

	path, err := writeTemp(e.TempDir, data)
	if err != nil {
		return "", err
	}
	a.OnClose(func() error {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	})
	return path, nil
}

func writeTemp(dir string, data []byte) (_ string, err error) {
	f, err := os.CreateTemp(dir, TempPattern)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	name := f.Name()
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		if err != nil {
			_ = os.Remove(name) // Best-effort cleanup
		}
	}()

	if _, err = io.Copy(f, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to save downloaded file: %w", err)
	}
	return name, nil
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	tmp, err := writeTemp(filepath.Dir(path), data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to store cached file: %w", err)
	}
	return nil
}

func cacheName(rawURL string) string {
	h, err := blake3.NewKeyed([]byte(cacheKey))
	if err != nil {
		panic("resource: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	_, _ = h.Write([]byte(rawURL))
	return hex.EncodeToString(h.Sum(nil)) + ".jar"
}
