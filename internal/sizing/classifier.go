// Package sizing maps piece weights onto the configured size-class bands.
package sizing

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"fishfarm-backend/internal/apperr"
	"fishfarm-backend/internal/models"

	"gorm.io/gorm"
)

const (
	MinClass = 0
	MaxClass = 10
)

// Classifier holds a validated, class-ordered band table. It has no other state.
type Classifier struct {
	bands []models.SizeClass
}

// NewClassifier validates bands: classes inside 0..10 without gaps or
// duplicates, each band non-empty, and every band starting where the previous
// one ends. Only the last band may be unbounded (MaxGrams 0).
func NewClassifier(bands []models.SizeClass) (*Classifier, error) {
	if len(bands) == 0 {
		return nil, apperr.Validation("at least one size class band is required")
	}
	sorted := make([]models.SizeClass, len(bands))
	copy(sorted, bands)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Class < sorted[j].Class })

	for i, b := range sorted {
		if b.Class < MinClass || b.Class > MaxClass {
			return nil, apperr.Validation("size class %d is outside %d-%d", b.Class, MinClass, MaxClass)
		}
		if b.MinGrams < 0 {
			return nil, apperr.Validation("size class %d has a negative lower bound", b.Class)
		}
		last := i == len(sorted)-1
		if b.MaxGrams == 0 && !last {
			return nil, apperr.Validation("only the highest size class may be unbounded (class %d)", b.Class)
		}
		if b.MaxGrams != 0 && b.MaxGrams <= b.MinGrams {
			return nil, apperr.Validation("size class %d has max %.2fg <= min %.2fg", b.Class, b.MaxGrams, b.MinGrams)
		}
		if i == 0 {
			continue
		}
		prev := sorted[i-1]
		if b.Class != prev.Class+1 {
			return nil, apperr.Validation("size classes must be contiguous: %d follows %d", b.Class, prev.Class)
		}
		if b.MinGrams != prev.MaxGrams {
			return nil, apperr.Validation("size class %d starts at %.2fg but class %d ends at %.2fg", b.Class, b.MinGrams, prev.Class, prev.MaxGrams)
		}
	}
	return &Classifier{bands: sorted}, nil
}

// Classify returns the class whose band contains weightGrams (min inclusive,
// max exclusive).
func (c *Classifier) Classify(weightGrams float64) (int, error) {
	if weightGrams < 0 {
		return 0, apperr.Validation("weight must not be negative")
	}
	for _, b := range c.bands {
		if weightGrams >= b.MinGrams && (b.MaxGrams == 0 || weightGrams < b.MaxGrams) {
			return b.Class, nil
		}
	}
	return 0, apperr.Validation("no size class covers %.2fg", weightGrams)
}

func (c *Classifier) Bands() []models.SizeClass {
	out := make([]models.SizeClass, len(c.bands))
	copy(out, c.bands)
	return out
}

// UnitWeight is the average weight of one piece. Zero pieces yields 0.
func UnitWeight(totalWeightGrams float64, pieceCount int) float64 {
	if pieceCount <= 0 {
		return 0
	}
	return totalWeightGrams / float64(pieceCount)
}

// Load builds a classifier from the size_classes table.
func Load(ctx context.Context, db *gorm.DB) (*Classifier, error) {
	var bands []models.SizeClass
	if err := db.WithContext(ctx).Order("class").Find(&bands).Error; err != nil {
		return nil, fmt.Errorf("load size classes: %w", err)
	}
	return NewClassifier(bands)
}

// Replace swaps the whole band table inside tx after validating it.
func Replace(tx *gorm.DB, bands []models.SizeClass) (*Classifier, error) {
	c, err := NewClassifier(bands)
	if err != nil {
		return nil, err
	}
	if err := tx.Where("1 = 1").Delete(&models.SizeClass{}).Error; err != nil {
		return nil, fmt.Errorf("clear size classes: %w", err)
	}
	rows := c.Bands()
	if err := tx.Create(&rows).Error; err != nil {
		return nil, fmt.Errorf("insert size classes: %w", err)
	}
	return c, nil
}

// DefaultBands are used when neither the table nor SIZE_CLASS_FILE provides any.
func DefaultBands() []models.SizeClass {
	edges := []float64{0, 50, 100, 200, 300, 400, 500, 700, 1000, 1500, 2000}
	bands := make([]models.SizeClass, 0, len(edges))
	for i, lo := range edges {
		var hi float64
		if i+1 < len(edges) {
			hi = edges[i+1]
		}
		bands = append(bands, models.SizeClass{Class: i, MinGrams: lo, MaxGrams: hi})
	}
	return bands
}

// InitialBands reads the band file when path is set, otherwise DefaultBands.
func InitialBands(path string) ([]models.SizeClass, error) {
	if path == "" {
		return DefaultBands(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read size class file: %w", err)
	}
	var bands []models.SizeClass
	if err := json.Unmarshal(raw, &bands); err != nil {
		return nil, fmt.Errorf("parse size class file: %w", err)
	}
	if _, err := NewClassifier(bands); err != nil {
		return nil, err
	}
	return bands, nil
}
