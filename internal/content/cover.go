package content

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/conneroisu/isle/internal/errors"
)

var rasterExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true}

// Cover renders the cover of a folder-form document: SVG files inline,
// raster images as an img element. Other covers render nothing.
func Cover(doc Document, urls URLs) (template.HTML, error) {
	if doc.Cover == "" || doc.Dir == "" {
		return "", nil
	}
	name := filepath.Base(filepath.Clean(doc.Cover))
	ext := strings.ToLower(filepath.Ext(name))

	switch {
	case ext == ".svg":
		svg, err := os.ReadFile(filepath.Join(doc.Dir, name))
		if err != nil {
			return "", errors.WrapIO(err, errors.ErrCodeFileNotFound, "failed to read cover").WithUnit(doc.Slug)
		}
		return template.HTML("<div>" + string(svg) + "</div>"), nil
	case rasterExts[ext]:
		src := template.HTMLEscapeString(urls.URL("/" + doc.Slug + "/" + name))
		return template.HTML(fmt.Sprintf(`<img src="%s" alt="">`, src)), nil
	default:
		return "", nil
	}
}
