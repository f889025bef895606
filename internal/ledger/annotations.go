package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
)

// Annotation is a reviewer's statement about a link, kept apart from crawl results.
type Annotation struct {
	Source       string `json:"source"`
	URL          string `json:"url"`
	Resolved     bool   `json:"resolved"`
	ResolvedDate string `json:"resolved_date"`
}

type annotationFile struct {
	Resolved []Annotation `json:"resolved"`
}

// AnnotationLog is the JSON file of reviewer annotations. Entries outlive the records they
// describe, so resolution history survives a link dropping out of the store.
type AnnotationLog struct {
	path string
}

// NewAnnotationLog returns a log backed by path. An empty path disables the log.
func NewAnnotationLog(path string) *AnnotationLog {
	return &AnnotationLog{path: path}
}

// Load reads the log. A missing file or disabled log yields an empty map.
func (l *AnnotationLog) Load() (map[Key]Annotation, error) {
	out := make(map[Key]Annotation)
	if l.path == "" {
		return out, nil
	}
	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: read annotations: %w", err)
	}
	if len(data) == 0 {
		return out, nil
	}

	var file annotationFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("ledger: decode annotations: %w", err)
	}
	for _, a := range file.Resolved {
		out[Key{Source: a.Source, URL: a.URL}] = a
	}
	return out, nil
}

// Save replaces the log with annotations.
func (l *AnnotationLog) Save(annotations map[Key]Annotation) error {
	if l.path == "" {
		return nil
	}
	file := annotationFile{Resolved: sortedAnnotations(annotations)}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("ledger: encode annotations: %w", err)
	}
	err = writeFileAtomic(l.path, func(f *os.File) error {
		_, werr := f.Write(data)
		return werr
	})
	if err != nil {
		return fmt.Errorf("ledger: save annotations: %w", err)
	}
	return nil
}

// Apply overlays annotations on records with matching keys. Annotations win.
func Apply(records map[Key]Record, annotations map[Key]Annotation) {
	for key, a := range annotations {
		r, ok := records[key]
		if !ok {
			continue
		}
		r.Resolved = a.Resolved
		r.ResolvedDate = a.ResolvedDate
		records[key] = r
	}
}

func sortedAnnotations(annotations map[Key]Annotation) []Annotation {
	out := make([]Annotation, 0, len(annotations))
	for _, a := range annotations {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].URL < out[j].URL
	})
	return out
}
