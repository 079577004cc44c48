package corpus

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/voxdex/core"
	"github.com/poiesic/voxdex/jsonx"
)

// metadataFile is the on-disk metadata shape. Several URL keys are accepted
// because different downloaders name the field differently.
type metadataFile struct {
	Title       string `json:"title"`
	UploadDate  string `json:"upload_date"`
	SourceURL   string `json:"source_url"`
	OriginalURL string `json:"original_url"`
	WebpageURL  string `json:"webpage_url"`
	URL         string `json:"url"`
}

func (m metadataFile) sourceURL() string {
	for _, u := range []string{m.SourceURL, m.OriginalURL, m.WebpageURL, m.URL} {
		if strings.TrimSpace(u) != "" {
			return u
		}
	}
	return ""
}

// Source is one transcript found on disk, joined with its metadata.
type Source struct {
	core.DocumentMeta
	MetadataPath string
	// MetadataErr is set when the metadata file exists but cannot be parsed.
	MetadataErr error
}

// HasMetadata reports whether a parsable metadata file was found.
func (s Source) HasMetadata() bool {
	return s.MetadataPath != "" && s.MetadataErr == nil
}

// Inventory is the result of scanning the corpus directories.
type Inventory struct {
	// Sources holds one entry per transcript, sorted by doc id.
	Sources []Source
	// OrphanMetadata lists doc ids that have metadata but no transcript.
	OrphanMetadata []string
}

// DocIDs returns the doc id of every source.
func (inv *Inventory) DocIDs() []string {
	ids := make([]string, len(inv.Sources))
	for i, s := range inv.Sources {
		ids[i] = s.DocID
	}
	return ids
}

// Filter returns the sources whose doc id is not in exclude.
func (inv *Inventory) Filter(exclude map[string]bool) []Source {
	var out []Source
	for _, s := range inv.Sources {
		if !exclude[s.DocID] {
			out = append(out, s)
		}
	}
	return out
}

// LoadSources scans transcriptsDir for *.txt and metadataDir for *.json.
// Missing directories are a validation failure.
func LoadSources(transcriptsDir, metadataDir string) (*Inventory, error) {
	for label, dir := range map[string]string{"transcripts": transcriptsDir, "metadata": metadataDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return nil, fmt.Errorf("%w: %s directory missing: %s", core.ErrValidation, label, dir)
		}
	}

	transcripts, err := filepath.Glob(filepath.Join(transcriptsDir, "*.txt"))
	if err != nil {
		return nil, err
	}
	metadata, err := filepath.Glob(filepath.Join(metadataDir, "*.json"))
	if err != nil {
		return nil, err
	}
	slices.Sort(transcripts)

	metaByID := make(map[string]string, len(metadata))
	for _, p := range metadata {
		metaByID[core.DocIDFromFilename(p)] = p
	}

	inv := &Inventory{}
	seen := make(map[string]bool, len(transcripts))
	for _, p := range transcripts {
		docID := core.DocIDFromFilename(p)
		seen[docID] = true
		src := Source{DocumentMeta: core.DocumentMeta{
			DocID:      docID,
			SourcePath: p,
			SourceName: filepath.Base(p),
		}}
		if mp, ok := metaByID[docID]; ok {
			src.MetadataPath = mp
			src.MetadataErr = readMetadata(mp, &src.DocumentMeta)
		}
		inv.Sources = append(inv.Sources, src)
	}
	for id := range metaByID {
		if !seen[id] {
			inv.OrphanMetadata = append(inv.OrphanMetadata, id)
		}
	}
	slices.Sort(inv.OrphanMetadata)
	return inv, nil
}

func readMetadata(path string, meta *core.DocumentMeta) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var m metadataFile
	if err := jsonx.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("%w: %v", ErrMetadataParse, err)
	}
	meta.Title = strings.TrimSpace(m.Title)
	meta.UploadDate = strings.TrimSpace(m.UploadDate)
	meta.SourceURL = strings.TrimSpace(m.sourceURL())
	return nil
}

// ReadTranscript reads a transcript and rejects text that is not valid UTF-8.
func ReadTranscript(src Source) (string, error) {
	data, err := os.ReadFile(src.SourcePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: transcript missing: %s", core.ErrValidation, src.SourcePath)
		}
		return "", err
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s", ErrUndecodable, src.SourcePath)
	}
	return string(data), nil
}
