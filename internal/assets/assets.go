package assets

import (
	"bytes"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	gocache "github.com/patrickmn/go-cache"
	_ "golang.org/x/image/webp"
)

// The core engine receives already-resolved image references; fetching and
// decoding them is this collaborator's job. Decoded pixels and data-URI forms
// are cached so a live editor re-rendering on every keystroke does not
// re-download or re-decode anything.

var (
	// Decoded pixels, keyed by source reference.
	imageCache *gocache.Cache

	// data-URI form for embedding into self-contained SVG scenes.
	uriCache *gocache.Cache

	// HTTP client with timeout and pooled connections.
	httpClient *http.Client

	once sync.Once
)

func Init() {
	once.Do(func() {
		imageCache = gocache.New(10*time.Minute, 20*time.Minute)
		uriCache = gocache.New(10*time.Minute, 20*time.Minute)

		transport := &http.Transport{
			MaxIdleConns:        200,
			MaxIdleConnsPerHost: 50,
			IdleConnTimeout:     90 * time.Second,
		}
		httpClient = &http.Client{
			Timeout:   5 * time.Second,
			Transport: transport,
		}
	})
}

// fetch returns the raw bytes behind a source reference: an inline data URI,
// a remote URL, or a local file path.
func fetch(src string) ([]byte, error) {
	switch {
	case src == "":
		return nil, fmt.Errorf("empty image reference")

	case strings.HasPrefix(src, "data:"):
		idx := strings.Index(src, "base64,")
		if idx < 0 {
			return nil, fmt.Errorf("unsupported data URI encoding")
		}
		data, err := base64.StdEncoding.DecodeString(src[idx+len("base64,"):])
		if err != nil {
			return nil, fmt.Errorf("failed to decode data URI: %w", err)
		}
		return data, nil

	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		resp, err := httpClient.Get(src)
		if err != nil {
			return nil, fmt.Errorf("failed to download image: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("bad status: %s", resp.Status)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, 20*1024*1024))
		if err != nil {
			return nil, fmt.Errorf("failed to read image data: %w", err)
		}
		return data, nil

	default:
		data, err := os.ReadFile(src)
		if err != nil {
			return nil, fmt.Errorf("failed to read image file: %w", err)
		}
		return data, nil
	}
}

// Image fetches and decodes a source reference into pixels. Supports PNG,
// JPG, GIF and WebP. Results are cached.
func Image(src string) (image.Image, error) {
	Init()

	key := cacheKey(src)
	if cached, found := imageCache.Get(key); found {
		return cached.(image.Image), nil
	}

	data, err := fetch(src)
	if err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	imageCache.Set(key, img, gocache.DefaultExpiration)
	return img, nil
}

// Dimensions returns the natural pixel size of an image reference.
func Dimensions(src string) (w, h int, err error) {
	img, err := Image(src)
	if err != nil {
		return 0, 0, err
	}
	b := img.Bounds()
	return b.Dx(), b.Dy(), nil
}

// DataURI returns a self-contained PNG data URI for embedding in a vector
// scene. Existing data URIs pass through unchanged.
func DataURI(src string) (string, error) {
	Init()

	if strings.HasPrefix(src, "data:") {
		return src, nil
	}

	key := cacheKey(src)
	if cached, found := uriCache.Get(key); found {
		return cached.(string), nil
	}

	img, err := Image(src)
	if err != nil {
		return "", err
	}

	// Normalize to PNG so the embedded form never depends on the source
	// container format.
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.Clone(img), imaging.PNG); err != nil {
		return "", fmt.Errorf("failed to encode PNG: %w", err)
	}

	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
	uriCache.Set(key, uri, gocache.DefaultExpiration)
	return uri, nil
}

// PNGBytes returns the image re-encoded as PNG, the form the PDF exporter
// embeds directly.
func PNGBytes(src string) ([]byte, error) {
	img, err := Image(src)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.Clone(img), imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// PreloadImages fetches and decodes multiple references concurrently and
// returns the ones that succeeded.
func PreloadImages(srcs []string) map[string]image.Image {
	Init()

	results := make(map[string]image.Image)
	var mu sync.Mutex
	var wg sync.WaitGroup

	sem := make(chan struct{}, 20)

	for _, src := range srcs {
		if src == "" {
			continue
		}

		wg.Add(1)
		go func(s string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			img, err := Image(s)
			if err == nil {
				mu.Lock()
				results[s] = img
				mu.Unlock()
			}
		}(src)
	}

	wg.Wait()
	return results
}

// ============ HELPER FUNCTIONS ============

func cacheKey(src string) string {
	hash := md5.Sum([]byte(src))
	return hex.EncodeToString(hash[:])
}

// ClearCache drops all cached images.
func ClearCache() {
	Init()
	imageCache.Flush()
	uriCache.Flush()
}

// GetCacheStats returns cache statistics.
func GetCacheStats() map[string]interface{} {
	Init()
	return map[string]interface{}{
		"image_items": imageCache.ItemCount(),
		"uri_items":   uriCache.ItemCount(),
	}
}
