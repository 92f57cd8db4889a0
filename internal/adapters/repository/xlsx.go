package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/okian/farbklang/internal/domain/model"
	"github.com/okian/farbklang/internal/domain/rating"
)

// Spreadsheet column headers in write order.
const (
	ColTimestamp        = "Timestamp"
	ColSong             = "Song"
	ColColor1           = "Color 1"
	ColColor2           = "Color 2"
	ColColor3           = "Color 3"
	ColColdWarm         = "Cold-Warm"
	ColGarishPastel     = "Garish-Pastel"
	ColRoundPointy      = "Round-Pointy"
	ColShapeDynamics    = "Shape Dynamics"
	ColColorTransitions = "Color Transitions"
	ColVisualDensity    = "Visual Density"
	ColEmotion          = "Emotion"
)

// Header is the header row of a fresh sheet.
var Header = []string{
	ColTimestamp, ColSong, ColColor1, ColColor2, ColColor3,
	ColColdWarm, ColGarishPastel, ColRoundPointy, ColShapeDynamics,
	ColColorTransitions, ColVisualDensity, ColEmotion,
}

// headerAliases maps the German column names of the original workbook to
// the names above. Lookups are case-insensitive.
var headerAliases = map[string]string{
	"zeitstempel":       ColTimestamp,
	"farbe 1":           ColColor1,
	"farbe 2":           ColColor2,
	"farbe 3":           ColColor3,
	"kalt-warm":         ColColdWarm,
	"grell-pastell":     ColGarishPastel,
	"form (rund-spitz)": ColRoundPointy,
	"formdynamik":       ColShapeDynamics,
	"farbübergänge":     ColColorTransitions,
	"visuelle dichte":   ColVisualDensity,
}

// canonicalHeader returns the column name for a header cell.
func canonicalHeader(name string) string {
	name = strings.TrimSpace(name)
	key := strings.ToLower(name)
	if alias, ok := headerAliases[key]; ok {
		return alias
	}
	for _, col := range Header {
		if strings.ToLower(col) == key {
			return col
		}
	}
	return name
}

// XLSXStore keeps records in one worksheet of a local .xlsx file. The file is
// reopened on every call so that edits made outside the process are seen.
type XLSXStore struct {
	mu    sync.Mutex
	path  string
	sheet string
}

// NewXLSXStore opens the workbook at path, creating it with a header row when
// it does not exist.
func NewXLSXStore(ctx context.Context, path, sheet string) (*XLSXStore, error) {
	if path == "" {
		return nil, ErrMissingPath
	}
	if strings.TrimSpace(sheet) == "" {
		return nil, ErrMissingSheet
	}
	s := &XLSXStore{path: path, sheet: sheet}

	f, created, err := s.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if created {
		if err := s.save(f, created); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Path returns the workbook file.
func (s *XLSXStore) Path() string { return s.path }

// open returns the workbook, creating an in-memory one when the file is
// missing. The sheet is guaranteed to exist with a header row.
func (s *XLSXStore) open() (*excelize.File, bool, error) {
	var (
		f       *excelize.File
		created bool
	)
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		f = excelize.NewFile()
		if err := f.SetSheetName(f.GetSheetName(0), s.sheet); err != nil {
			_ = f.Close()
			return nil, false, fmt.Errorf("name sheet: %w", err)
		}
		created = true
	} else {
		f, err = excelize.OpenFile(s.path)
		if err != nil {
			return nil, false, fmt.Errorf("open workbook: %w", err)
		}
	}

	idx, err := f.GetSheetIndex(s.sheet)
	if err != nil {
		_ = f.Close()
		return nil, false, fmt.Errorf("find sheet: %w", err)
	}
	if idx < 0 {
		if _, err := f.NewSheet(s.sheet); err != nil {
			_ = f.Close()
			return nil, false, fmt.Errorf("create sheet: %w", err)
		}
	}

	rows, err := f.GetRows(s.sheet)
	if err != nil {
		_ = f.Close()
		return nil, false, fmt.Errorf("read sheet: %w", err)
	}
	if len(rows) == 0 {
		if err := f.SetSheetRow(s.sheet, "A1", &Header); err != nil {
			_ = f.Close()
			return nil, false, fmt.Errorf("write header: %w", err)
		}
	}
	return f, created, nil
}

func (s *XLSXStore) save(f *excelize.File, created bool) error {
	if created {
		if dir := filepath.Dir(s.path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create workbook directory: %w", err)
			}
		}
		if err := f.SaveAs(s.path); err != nil {
			return fmt.Errorf("save workbook: %w", err)
		}
		return nil
	}
	if err := f.Save(); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

// LoadAll implements Store. Rows without a song title are ignored; every
// other row is returned as stored.
func (s *XLSXStore) LoadAll(ctx context.Context) ([]model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, _, err := s.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(s.sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	cols := columnIndex(rows[0])
	out := make([]model.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec, ok := decodeRow(cols, row)
		if !ok {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Upsert implements Store.
func (s *XLSXStore) Upsert(ctx context.Context, rec model.Record) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := checkSong(rec); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, created, err := s.open()
	if err != nil {
		return false, err
	}
	defer f.Close()

	rows, err := f.GetRows(s.sheet)
	if err != nil {
		return false, fmt.Errorf("read sheet: %w", err)
	}
	header := Header
	if len(rows) > 0 {
		header = rows[0]
	}
	cols := columnIndex(header)
	songCol, ok := cols[ColSong]
	if !ok {
		return false, fmt.Errorf("sheet %q has no %q column", s.sheet, ColSong)
	}

	// Remove from the bottom so earlier row numbers stay valid.
	replaced := false
	for i := len(rows) - 1; i >= 1; i-- {
		if cell(rows[i], songCol) == rec.Song {
			if err := f.RemoveRow(s.sheet, i+1); err != nil {
				return false, fmt.Errorf("remove row %d: %w", i+1, err)
			}
			replaced = true
		}
	}

	rows, err = f.GetRows(s.sheet)
	if err != nil {
		return false, fmt.Errorf("read sheet: %w", err)
	}
	next := len(rows) + 1
	if next < 2 {
		next = 2
	}
	ref, err := excelize.CoordinatesToCellName(1, next)
	if err != nil {
		return false, fmt.Errorf("cell name: %w", err)
	}
	values := encodeRow(cols, len(header), rec)
	if err := f.SetSheetRow(s.sheet, ref, &values); err != nil {
		return false, fmt.Errorf("write row: %w", err)
	}
	if err := s.save(f, created); err != nil {
		return false, err
	}
	return replaced, nil
}

// Count implements Store.
func (s *XLSXStore) Count(ctx context.Context) (int, error) {
	recs, err := s.LoadAll(ctx)
	if err != nil {
		return 0, err
	}
	return len(recs), nil
}

// Close implements Store. The workbook is not held open between calls.
func (s *XLSXStore) Close() error { return nil }

// columnIndex maps header names to zero-based column positions. German
// headers resolve to their English names. A header without a Song column is
// treated as the default layout.
func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(Header))
	for i, name := range header {
		name = canonicalHeader(name)
		if _, dup := cols[name]; name != "" && !dup {
			cols[name] = i
		}
	}
	if _, ok := cols[ColSong]; ok {
		return cols
	}
	for i, name := range Header {
		cols[name] = i
	}
	return cols
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func decodeRow(cols map[string]int, row []string) (model.Record, bool) {
	get := func(name string) string {
		i, ok := cols[name]
		if !ok {
			return ""
		}
		return cell(row, i)
	}

	song := get(ColSong)
	if song == "" {
		return model.Record{}, false
	}
	rec := model.Record{
		Timestamp: parseTimestamp(get(ColTimestamp)),
		Song:      song,
		Colors:    [3]string{get(ColColor1), get(ColColor2), get(ColColor3)},
		Mood: model.Mood{
			ColdWarm:         parseSlider(get(ColColdWarm)),
			GarishPastel:     parseSlider(get(ColGarishPastel)),
			RoundPointy:      parseSlider(get(ColRoundPointy)),
			ShapeDynamics:    parseSlider(get(ColShapeDynamics)),
			ColorTransitions: parseSlider(get(ColColorTransitions)),
			VisualDensity:    parseSlider(get(ColVisualDensity)),
		},
		Emotions: rating.SplitEmotions(get(ColEmotion)),
	}
	return rec, true
}

func encodeRow(cols map[string]int, width int, rec model.Record) []interface{} {
	values := map[string]interface{}{
		ColTimestamp:        formatTimestamp(rec.Timestamp),
		ColSong:             rec.Song,
		ColColor1:           rec.Colors[0],
		ColColor2:           rec.Colors[1],
		ColColor3:           rec.Colors[2],
		ColColdWarm:         rec.Mood.ColdWarm,
		ColGarishPastel:     rec.Mood.GarishPastel,
		ColRoundPointy:      rec.Mood.RoundPointy,
		ColShapeDynamics:    rec.Mood.ShapeDynamics,
		ColColorTransitions: rec.Mood.ColorTransitions,
		ColVisualDensity:    rec.Mood.VisualDensity,
		ColEmotion:          rating.JoinEmotions(rec.Emotions),
	}
	for _, i := range cols {
		if i+1 > width {
			width = i + 1
		}
	}
	out := make([]interface{}, width)
	for name, v := range values {
		if i, ok := cols[name]; ok {
			out[i] = v
		}
	}
	return out
}

// parseSlider reads a stored slider value; unreadable cells take the default
// position.
func parseSlider(s string) float64 {
	if s == "" {
		return 0.5
	}
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 0.5
	}
	return v
}
