// Package loader reads and writes workspace documents. A workspace holds the
// material catalog, module definitions and quotes; it may be stored as YAML,
// TOML or JSON, chosen by file extension.
package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/leapcalc/pkg/core"
)

// Format is a workspace document encoding.
type Format string

// Supported formats.
const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// lockTimeout bounds how long Save waits for another writer.
const lockTimeout = 5 * time.Second

// FormatOf returns the format implied by a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported workspace file extension %q (expected .yaml, .yml, .toml or .json)", filepath.Ext(path))
	}
}

// Load reads and validates the workspace at path.
func Load(path string) (*core.Workspace, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path) //nolint:gosec // path comes from user config
	if err != nil {
		return nil, fmt.Errorf("failed to open workspace: %w", err)
	}
	defer func() { _ = f.Close() }()

	ws, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ws, nil
}

// Decode reads a workspace document in the given format.
func Decode(r io.Reader, format Format) (*core.Workspace, error) {
	var doc workspaceDoc
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case FormatTOML:
		md, err := toml.NewDecoder(r).Decode(&doc)
		if err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("failed to parse TOML: unknown key %q", undecoded[0].String())
		}
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.UseNumber()
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	return doc.toWorkspace()
}

// Encode writes ws in the given format.
func Encode(w io.Writer, ws *core.Workspace, format Format) error {
	doc := fromWorkspace(ws)
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return enc.Close()
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(doc); err != nil {
			return fmt.Errorf("failed to encode TOML: %w", err)
		}
		return nil
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// Save writes ws to path in the format implied by its extension. Writers are
// serialized with a lock file next to path, and the document is replaced
// atomically so concurrent readers never see a partial file.
func Save(ctx context.Context, path string, ws *core.Workspace) error {
	lock, err := acquireLock(ctx, path)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()
	return save(path, ws)
}

// Update loads the workspace at path, applies fn and saves the result while
// holding the writer lock, so concurrent updates are not lost. Nothing is
// written when fn fails.
func Update(ctx context.Context, path string, fn func(ws *core.Workspace) error) (*core.Workspace, error) {
	lock, err := acquireLock(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = lock.Unlock() }()

	ws, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := fn(ws); err != nil {
		return nil, err
	}
	if err := save(path, ws); err != nil {
		return nil, err
	}
	return ws, nil
}

func save(path string, ws *core.Workspace) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := Encode(&buf, ws, format); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write workspace: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write workspace: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace workspace: %w", err)
	}
	return nil
}

func acquireLock(ctx context.Context, path string) (*flock.Flock, error) {
	lock := flock.New(path + ".lock")
	ctx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	locked, err := lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("failed to lock workspace: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("timeout waiting for workspace lock %s", path+".lock")
	}
	return lock, nil
}
