// Package sitemap renders and reads sitemap index documents.
package sitemap

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"path/filepath"

	"github.com/beevik/etree"
	"github.com/romangod6/sitemap-aggregator/internal/models"
	"github.com/spf13/afero"
)

// Namespace is the standard sitemap XML namespace.
const Namespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// Writer writes a sitemap index to a fixed path on fs.
type Writer struct {
	fs   afero.Fs
	path string
}

func NewWriter(fs afero.Fs, path string) *Writer {
	return &Writer{fs: fs, path: path}
}

func (w *Writer) Path() string {
	return w.path
}

// Build creates the index document: one <sitemap><loc> per URL, in order.
func Build(urls []string) *etree.Document {
	doc := etree.NewDocument()
	// trailing space renders as <?xml version="1.0" ?>
	doc.CreateProcInst("xml", `version="1.0" `)

	root := doc.CreateElement("sitemapindex")
	root.CreateAttr("xmlns", Namespace)
	for _, u := range urls {
		root.CreateElement("sitemap").CreateElement("loc").SetText(u)
	}

	doc.Indent(2)
	return doc
}

// Render returns the indented document, always newline terminated.
func Render(urls []string) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := Build(urls).WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to render sitemap index: %w", err)
	}
	if !bytes.HasSuffix(buf.Bytes(), []byte("\n")) {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// Write replaces the file at the writer's path. Content goes to a temp file in
// the same directory first and is renamed into place.
func (w *Writer) Write(urls []string) error {
	data, err := Render(urls)
	if err != nil {
		return err
	}

	dir := filepath.Dir(w.path)
	if err := w.fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := afero.TempFile(w.fs, dir, ".sitemapindex-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		w.fs.Remove(tmpName)
		return fmt.Errorf("failed to write sitemap index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		w.fs.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := w.fs.Chmod(tmpName, 0644); err != nil {
		w.fs.Remove(tmpName)
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := w.fs.Rename(tmpName, w.path); err != nil {
		w.fs.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", w.path, err)
	}

	return nil
}

// Read decodes the sitemap index stored at path.
func Read(fs afero.Fs, path string) (*models.SitemapIndex, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}

	var index models.SitemapIndex
	if err := xml.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to decode sitemap index XML: %w", err)
	}

	return &index, nil
}
