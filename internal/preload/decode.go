package preload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/url"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/pierrec/lz4"
	"github.com/specialistvlad/avgboot/internal/fsys"
	"github.com/ulikunitz/xz"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/font/opentype"
	_ "golang.org/x/image/webp"
)

// maxDecompressed caps what a compressed asset may expand to.
const maxDecompressed = 256 << 20

// DecodeFunc validates fetched content and names its format.
type DecodeFunc func(name string, data []byte) (string, error)

// Decode checks that data is a usable asset for its extension. Compressed
// payloads are expanded and their inner extension decoded.
func Decode(name string, data []byte) (string, error) {
	ext := strings.ToLower(path.Ext(assetPath(name)))
	switch ext {
	case ".lz4":
		inner, err := readCapped(lz4.NewReader(bytes.NewReader(data)))
		if err != nil {
			return "", fmt.Errorf("lz4: %w", err)
		}
		format, err := Decode(trimExt(name, ext), inner)
		return "lz4+" + format, err
	case ".xz":
		r, err := xz.NewReader(bytes.NewReader(data))
		if err != nil {
			return "", fmt.Errorf("xz: %w", err)
		}
		inner, err := readCapped(r)
		if err != nil {
			return "", fmt.Errorf("xz: %w", err)
		}
		format, err := Decode(trimExt(name, ext), inner)
		return "xz+" + format, err
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp":
		cfg, kind, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return "", fmt.Errorf("image: %w", err)
		}
		if cfg.Width <= 0 || cfg.Height <= 0 {
			return "", fmt.Errorf("image: empty %s", kind)
		}
		return "image/" + kind, nil
	case ".ttf", ".otf":
		if _, err := opentype.Parse(data); err != nil {
			return "", fmt.Errorf("font: %w", err)
		}
		return "font", nil
	case ".shader", ".glsl", ".vsh", ".fsh":
		if !utf8.Valid(data) {
			return "", errors.New("shader: source is not valid UTF-8")
		}
		return "shader", nil
	case ".json":
		if !json.Valid(data) {
			return "", errors.New("json: invalid document")
		}
		return "json", nil
	}
	return "raw", nil
}

func readCapped(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxDecompressed+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxDecompressed {
		return nil, fmt.Errorf("expands beyond %d bytes", maxDecompressed)
	}
	return data, nil
}

// assetPath strips the scheme, host and query of URLs so only the path
// extension is considered.
func assetPath(name string) string {
	if fsys.IsHTTPURL(name) {
		if u, err := url.Parse(name); err == nil {
			return u.Path
		}
	}
	return name
}

func trimExt(name, ext string) string {
	p := assetPath(name)
	return p[:len(p)-len(ext)]
}
