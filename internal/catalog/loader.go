package catalog

import (
	"bytes"
	"compress/gzip"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"cruise-booking/internal/model"
)

//go:embed data/products.json
var bundledProducts []byte

// Bundled returns the product list shipped with the binary.
func Bundled() Catalog {
	c, err := decode(bytes.NewReader(bundledProducts), false)
	if err != nil {
		// The embedded file is validated by tests; a failure here is a build defect.
		panic(fmt.Sprintf("catalog: invalid bundled dataset: %v", err))
	}
	return c
}

// fileLoader implements Loader for product snapshots on the local file system.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a new file-based catalog loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "catalog-loader").Logger(),
	}
}

// Load reads a JSON product array. Paths ending in .gz are decompressed.
func (l *fileLoader) Load(ctx context.Context, filePath string) (Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.logger.Info().Str("file", filePath).Msg("loading catalog file")

	file, err := os.Open(filePath)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to open catalog file")
		return nil, fmt.Errorf("failed to open catalog file %s: %w", filePath, err)
	}
	defer file.Close()

	c, err := decode(file, strings.HasSuffix(filePath, ".gz"))
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to decode catalog file")
		return nil, fmt.Errorf("failed to decode catalog file %s: %w", filePath, err)
	}

	l.logger.Info().
		Str("file", filePath).
		Int("products_loaded", c.Size()).
		Msg("catalog file loaded successfully")

	return c, nil
}

func decode(r io.Reader, gzipped bool) (Catalog, error) {
	if gzipped {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	var products []model.Product
	if err := json.NewDecoder(r).Decode(&products); err != nil {
		return nil, fmt.Errorf("failed to parse product list: %w", err)
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("product list is empty")
	}
	return New(products), nil
}
