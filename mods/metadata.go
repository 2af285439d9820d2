package mods

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/klauspost/compress/zip"
)

const modInfoName = "modinfo.json"

var (
	// ErrNoMetadata means the file holds no recognisable mod metadata.
	ErrNoMetadata = errors.New("no mod metadata found")
	// ErrMissingField means a required metadata field (id, name, version) is empty.
	ErrMissingField = errors.New("required metadata field missing")
	// ErrCorruptArchive means the archive failed integrity validation.
	ErrCorruptArchive = errors.New("corrupt archive")

	utf8BOM = []byte{0xEF, 0xBB, 0xBF}
)

// Metadata is what a MetadataSource extracts from one file.
type Metadata struct {
	ID          string
	Name        string
	Version     string
	Description string
	Side        string
	GameVersion string
}

func (m Metadata) validate() error {
	switch {
	case m.ID == "":
		return fmt.Errorf("%w: modid", ErrMissingField)
	case m.Name == "":
		return fmt.Errorf("%w: name", ErrMissingField)
	case m.Version == "":
		return fmt.Errorf("%w: version", ErrMissingField)
	}
	return nil
}

// MetadataSource extracts mod metadata from one kind of file.
type MetadataSource interface {
	// Match reports whether the source understands the file at path.
	Match(path string) bool
	// Read extracts metadata; it never panics on malformed input.
	Read(path string) (Metadata, error)
}

// DefaultSources returns the packaged-archive and source-file readers.
func DefaultSources() []MetadataSource {
	return []MetadataSource{ArchiveSource{}, SourceFileSource{}}
}

// ArchiveSource reads modinfo.json from a packaged .zip mod.
type ArchiveSource struct{}

func (ArchiveSource) Match(p string) bool {
	return strings.EqualFold(filepath.Ext(p), ".zip")
}

func (ArchiveSource) Read(p string) (Metadata, error) {
	r, err := zip.OpenReader(p)
	if err != nil {
		return Metadata{}, fmt.Errorf("%w: %v", ErrCorruptArchive, err)
	}
	defer r.Close()

	if err := verifyArchive(r.File); err != nil {
		return Metadata{}, err
	}

	info := findModInfo(r.File)
	if info == nil {
		return Metadata{}, fmt.Errorf("%w: %s not in archive", ErrNoMetadata, modInfoName)
	}

	rc, err := info.Open()
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to open %s: %w", info.Name, err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to read %s: %w", info.Name, err)
	}

	doc, err := decodeLenientJSON(raw, info.Name)
	if err != nil {
		return Metadata{}, err
	}
	md := metadataFromDocument(doc)
	return md, md.validate()
}

// verifyArchive reads every entry so that CRC mismatches surface.
func verifyArchive(files []*zip.File) error {
	for _, f := range files {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrCorruptArchive, f.Name, err)
		}
		_, err = io.Copy(io.Discard, rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrCorruptArchive, f.Name, err)
		}
	}
	return nil
}

// findModInfo prefers modinfo.json at the archive root, then the first one
// found in a subdirectory.
func findModInfo(files []*zip.File) *zip.File {
	var nested *zip.File
	for _, f := range files {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		if !strings.EqualFold(path.Base(name), modInfoName) {
			continue
		}
		if !strings.Contains(strings.TrimPrefix(name, "/"), "/") {
			return f
		}
		if nested == nil {
			nested = f
		}
	}
	return nested
}

// decodeLenientJSON accepts strict JSON and, failing that, the relaxed form
// mod authors ship: unquoted keys, trailing commas and // comments. CUE is a
// superset of JSON covering all three.
func decodeLenientJSON(raw []byte, name string) (map[string]any, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err == nil {
		return lowerKeys(doc), nil
	}

	doc = nil
	v := cuecontext.New().CompileBytes(raw, cue.Filename(name))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	if err := v.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return lowerKeys(doc), nil
}

func lowerKeys(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			v = lowerKeys(nested)
		}
		out[strings.ToLower(k)] = v
	}
	return out
}

func stringField(doc map[string]any, key string) string {
	v, ok := doc[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func metadataFromDocument(doc map[string]any) Metadata {
	md := Metadata{
		ID:          stringField(doc, "modid"),
		Name:        stringField(doc, "name"),
		Version:     stringField(doc, "version"),
		Description: stringField(doc, "description"),
		Side:        stringField(doc, "side"),
	}
	if deps, ok := doc["dependencies"].(map[string]any); ok {
		md.GameVersion = stringField(deps, "game")
	}
	return md
}

var (
	csNamespace   = regexp.MustCompile(`namespace\s+([A-Za-z0-9_]+)`)
	csVersion     = regexp.MustCompile(`Version\s*=\s*"([^"]+)"`)
	csSide        = regexp.MustCompile(`Side\s*=\s*"([^"]+)"`)
	csDescription = regexp.MustCompile(`Description\s*=\s*"([^"]+)"`)
)

// SourceFileSource reads the declarations at the top of a .cs code mod.
type SourceFileSource struct{}

func (SourceFileSource) Match(p string) bool {
	return strings.EqualFold(filepath.Ext(p), ".cs")
}

func (SourceFileSource) Read(p string) (Metadata, error) {
	content, err := os.ReadFile(p)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to read %s: %w", filepath.Base(p), err)
	}
	md := parseSourceHeader(string(bytes.TrimPrefix(content, utf8BOM)))
	if md.ID == "" && md.Version == "" {
		return Metadata{}, fmt.Errorf("%w: no namespace or Version declaration", ErrNoMetadata)
	}
	return md, md.validate()
}

func parseSourceHeader(content string) Metadata {
	find := func(re *regexp.Regexp) string {
		if m := re.FindStringSubmatch(content); m != nil {
			return strings.TrimSpace(m[1])
		}
		return ""
	}

	namespace := find(csNamespace)
	return Metadata{
		ID:          strings.ToLower(strings.ReplaceAll(namespace, " ", "")),
		Name:        namespace,
		Version:     find(csVersion),
		Side:        find(csSide),
		Description: find(csDescription),
	}
}
