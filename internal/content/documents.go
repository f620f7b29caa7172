package content

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conneroisu/isle/internal/errors"
	"github.com/conneroisu/isle/internal/logging"
)

// DocumentExt is the extension of content documents.
const DocumentExt = ".md"

// FolderIndex is the entry file of a folder-form document.
const FolderIndex = "index" + DocumentExt

// Document is the metadata of one content document.
type Document struct {
	Slug        string
	Title       string
	Subtitle    string
	Description string
	// Image is site-absolute; relative front matter values are rewritten to /<slug>/<image>.
	Image       string
	Cover       string
	PublishedAt Date
	UpdatedAt   *Date

	// SourcePath is the document file.
	SourcePath string
	// Dir is the folder of a folder-form document, empty for single files.
	Dir string
}

// Summary is the short feed description: subtitle, then description.
func (d Document) Summary() string {
	if d.Subtitle != "" {
		return d.Subtitle
	}
	return d.Description
}

// Store discovers documents below a posts directory.
type Store struct {
	Dir    string
	logger logging.Logger
}

// NewStore creates a store for dir.
func NewStore(dir string, logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Store{Dir: dir, logger: logger.WithComponent("content")}
}

// Load discovers every document, sorted by publish date, newest first.
// Folder-form documents (<slug>/index.md) and single files (<slug>.md) are
// both recognized. A document whose front matter cannot be read, or whose
// slug is not a single path segment, is logged and left out.
func (s *Store) Load(ctx context.Context) ([]Document, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WrapIO(err, errors.ErrCodeFileNotFound, "failed to read posts directory").WithFile(s.Dir)
	}

	var docs []Document
	seen := make(map[string]string)
	for _, e := range entries {
		var src, dir, slug string
		switch {
		case e.IsDir():
			dir = filepath.Join(s.Dir, e.Name())
			src = filepath.Join(dir, FolderIndex)
			if _, err := os.Stat(src); err != nil {
				continue
			}
			slug = e.Name()
		case strings.HasSuffix(e.Name(), DocumentExt):
			src = filepath.Join(s.Dir, e.Name())
			slug = strings.TrimSuffix(e.Name(), DocumentExt)
		default:
			continue
		}

		doc, err := s.read(src, dir, slug)
		if err != nil {
			s.logger.Warn(ctx, err, "Skipping document", "file", src)
			continue
		}
		if doc.PublishedAt.IsZero() {
			s.logger.Warn(ctx, nil, "Document has no publishedAt date", "file", src, "slug", doc.Slug)
		}
		if prev, dup := seen[doc.Slug]; dup {
			s.logger.Warn(ctx, nil, "Duplicate document slug", "slug", doc.Slug, "first", prev, "second", src)
		} else {
			seen[doc.Slug] = src
		}
		docs = append(docs, doc)
	}

	SortDocuments(docs)
	return docs, nil
}

// ValidSlug reports whether slug is a single path segment that is safe to
// use as an output directory name.
func ValidSlug(slug string) bool {
	if slug == "" || slug == "." || strings.Contains(slug, "..") {
		return false
	}
	return !strings.ContainsAny(slug, `/\`)
}

// SortDocuments orders documents newest first. Equal dates fall back to
// slug order so repeated loads are identical.
func SortDocuments(docs []Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		a, b := docs[i].PublishedAt.Time, docs[j].PublishedAt.Time
		if !a.Equal(b) {
			return a.After(b)
		}
		return docs[i].Slug < docs[j].Slug
	})
}

// Find returns the first document in load order with slug.
func Find(docs []Document, slug string) (Document, bool) {
	for _, d := range docs {
		if d.Slug == slug {
			return d, true
		}
	}
	return Document{}, false
}

// Body reads the document source without its front matter.
func (s *Store) Body(doc Document) ([]byte, error) {
	src, err := os.ReadFile(doc.SourcePath)
	if err != nil {
		return nil, errors.WrapIO(err, errors.ErrCodeFileNotFound, "failed to read document").WithUnit(doc.Slug)
	}
	_, body, err := ParseFrontMatter(src)
	if err != nil {
		return nil, errors.NewBuildError(errors.ErrCodeDocumentParse, "failed to parse document", err).
			WithUnit(doc.Slug).WithFile(doc.SourcePath)
	}
	return body, nil
}

// Assets lists the non-document files beside a folder-form document.
func (s *Store) Assets(doc Document) ([]string, error) {
	if doc.Dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(doc.Dir)
	if err != nil {
		return nil, errors.WrapIO(err, errors.ErrCodeFileNotFound, "failed to read document folder").WithUnit(doc.Slug)
	}
	var assets []string
	for _, e := range entries {
		if e.IsDir() || e.Name() == FolderIndex {
			continue
		}
		assets = append(assets, filepath.Join(doc.Dir, e.Name()))
	}
	return assets, nil
}

// Asset resolves a file beside the folder-form document with slug. The name
// must be a plain file name.
func Asset(docs []Document, slug, name string) (string, bool) {
	if name == "" || name == FolderIndex || strings.ContainsAny(name, `/\`) || name == ".." {
		return "", false
	}
	doc, ok := Find(docs, slug)
	if !ok || doc.Dir == "" {
		return "", false
	}
	p := filepath.Join(doc.Dir, name)
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		return "", false
	}
	return p, true
}

func (s *Store) read(src, dir, slug string) (Document, error) {
	raw, err := os.ReadFile(src)
	if err != nil {
		return Document{}, err
	}
	fm, _, err := ParseFrontMatter(raw)
	if err != nil {
		return Document{}, errors.NewBuildError(errors.ErrCodeDocumentParse, "failed to parse front matter", err).
			WithUnit(slug).WithFile(src)
	}

	if fm.Slug != "" {
		slug = fm.Slug
	}
	if !ValidSlug(slug) {
		return Document{}, errors.NewValidationError(errors.ErrCodeInvalidPath, "invalid document slug: "+slug).
			WithFile(src)
	}
	title := fm.Title
	if title == "" {
		title = cases.Title(language.English).String(strings.NewReplacer("-", " ", "_", " ").Replace(slug))
	}

	return Document{
		Slug:        slug,
		Title:       title,
		Subtitle:    fm.Subtitle,
		Description: fm.Description,
		Image:       resolveImage(fm.Image, slug),
		Cover:       fm.Cover,
		PublishedAt: fm.PublishedAt,
		UpdatedAt:   fm.UpdatedAt,
		SourcePath:  src,
		Dir:         dir,
	}, nil
}

func resolveImage(image, slug string) string {
	if image == "" || strings.HasPrefix(image, "/") || strings.HasPrefix(image, "http") {
		return image
	}
	return "/" + slug + "/" + strings.TrimPrefix(image, "./")
}
