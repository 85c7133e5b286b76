package spreadsheet

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/oblik/internal/domain/models"
)

// ErrUnreadableFile is returned when every decoding strategy failed.
var ErrUnreadableFile = errors.New("unreadable spreadsheet")

// RemotePrefix marks a path that names a range in the configured remote
// spreadsheet instead of a local file, e.g. "sheets:Stock!A1:Z500".
const RemotePrefix = "sheets:"

// Decoder reads the first worksheet of a file into a header-less grid.
type Decoder interface {
	Name() string
	Decode(path string) (*models.RawGrid, error)
}

// RangeReader fetches a rectangular range of raw values.
type RangeReader interface {
	ReadRange(ctx context.Context, sheetRange string) ([][]interface{}, error)
}

// Loader selects a decoder by file extension and falls back to every other
// decoder when the extension-specific one fails.
type Loader struct {
	byExt   map[string]Decoder
	generic []Decoder
	remote  RangeReader
	logger  *zap.Logger
}

// Option customizes a Loader.
type Option func(*Loader)

// WithRemote enables "sheets:" paths backed by the given reader.
func WithRemote(r RangeReader) Option {
	return func(l *Loader) { l.remote = r }
}

// WithDecoders replaces the decoder set. Mostly useful in tests.
func WithDecoders(byExt map[string]Decoder, generic []Decoder) Option {
	return func(l *Loader) {
		l.byExt = byExt
		l.generic = generic
	}
}

// NewLoader builds a Loader with the legacy and modern workbook decoders.
func NewLoader(logger *zap.Logger, opts ...Option) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}

	modern := excelizeDecoder{}
	legacy := xlsDecoder{}
	streaming := xlsxreaderDecoder{}

	l := &Loader{
		byExt: map[string]Decoder{
			".xls":  legacy,
			".xlsx": modern,
			".xlsm": modern,
		},
		generic: []Decoder{modern, streaming, legacy},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads path into a RawGrid. Row 0 is data, never a header.
func (l *Loader) Load(ctx context.Context, path string) (*models.RawGrid, error) {
	if strings.HasPrefix(path, RemotePrefix) {
		return l.loadRemote(ctx, strings.TrimPrefix(path, RemotePrefix))
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreadableFile, path, err)
	}

	var errs []error
	tried := make(map[string]bool)

	ext := strings.ToLower(filepath.Ext(path))
	if d, ok := l.byExt[ext]; ok {
		grid, err := l.try(d, path)
		if err == nil {
			return grid, nil
		}
		errs = append(errs, err)
		tried[d.Name()] = true
		l.logger.Warn("extension decoder failed, falling back", zap.String("path", path), zap.String("decoder", d.Name()), zap.Error(err))
	}

	for _, d := range l.generic {
		if tried[d.Name()] {
			continue
		}
		tried[d.Name()] = true

		grid, err := l.try(d, path)
		if err == nil {
			return grid, nil
		}
		errs = append(errs, err)
		l.logger.Debug("generic decoder failed", zap.String("path", path), zap.String("decoder", d.Name()), zap.Error(err))
	}

	return nil, fmt.Errorf("%w: %s: %w", ErrUnreadableFile, path, errors.Join(errs...))
}

func (l *Loader) try(d Decoder, path string) (grid *models.RawGrid, err error) {
	// Some legacy decoders panic on malformed input.
	defer func() {
		if r := recover(); r != nil {
			grid = nil
			err = fmt.Errorf("%s decoder panicked: %v", d.Name(), r)
		}
	}()

	grid, err = d.Decode(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Name(), err)
	}

	l.logger.Debug("spreadsheet decoded",
		zap.String("path", path),
		zap.String("decoder", d.Name()),
		zap.Int("rows", grid.Height()),
		zap.Int("cols", grid.Width()))
	return grid, nil
}

func (l *Loader) loadRemote(ctx context.Context, sheetRange string) (*models.RawGrid, error) {
	if l.remote == nil {
		return nil, fmt.Errorf("%w: remote source %q not configured", ErrUnreadableFile, sheetRange)
	}

	values, err := l.remote.ReadRange(ctx, sheetRange)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadableFile, err)
	}
	return models.GridFromValues(values), nil
}
