package sizing

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"fishfarm-backend/internal/apperr"
	"fishfarm-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestClassifyDefaultBands(t *testing.T) {
	c, err := NewClassifier(DefaultBands())
	require.NoError(t, err)

	cases := []struct {
		grams float64
		want  int
	}{
		{0, 0},
		{49.99, 0},
		{50, 1},
		{199, 2},
		{500, 6},
		{1999.5, 9},
		{2000, 10},
		{25000, 10},
	}
	for _, tc := range cases {
		got, err := c.Classify(tc.grams)
		require.NoError(t, err, "grams %v", tc.grams)
		assert.Equal(t, tc.want, got, "grams %v", tc.grams)
	}
}

func TestClassifyRejectsNegativeWeight(t *testing.T) {
	c, err := NewClassifier(DefaultBands())
	require.NoError(t, err)

	_, err = c.Classify(-1)
	var v *apperr.ValidationError
	assert.ErrorAs(t, err, &v)
}

func TestClassifyOutsideBoundedTable(t *testing.T) {
	c, err := NewClassifier([]models.SizeClass{
		{Class: 0, MinGrams: 10, MaxGrams: 20},
		{Class: 1, MinGrams: 20, MaxGrams: 30},
	})
	require.NoError(t, err)

	_, err = c.Classify(5)
	assert.Error(t, err)
	_, err = c.Classify(30)
	assert.Error(t, err)
}

func TestNewClassifierValidation(t *testing.T) {
	cases := map[string][]models.SizeClass{
		"empty":           nil,
		"class too large": {{Class: 11, MinGrams: 0}},
		"gap in classes":  {{Class: 0, MinGrams: 0, MaxGrams: 10}, {Class: 2, MinGrams: 10}},
		"overlap":         {{Class: 0, MinGrams: 0, MaxGrams: 10}, {Class: 1, MinGrams: 5}},
		"hole":            {{Class: 0, MinGrams: 0, MaxGrams: 10}, {Class: 1, MinGrams: 15}},
		"unbounded early": {{Class: 0, MinGrams: 0}, {Class: 1, MinGrams: 10, MaxGrams: 20}},
		"empty band":      {{Class: 0, MinGrams: 10, MaxGrams: 10}},
		"negative":        {{Class: 0, MinGrams: -1, MaxGrams: 10}},
	}
	for name, bands := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewClassifier(bands)
			var v *apperr.ValidationError
			assert.ErrorAs(t, err, &v)
		})
	}
}

func TestNewClassifierSortsInput(t *testing.T) {
	c, err := NewClassifier([]models.SizeClass{
		{Class: 1, MinGrams: 100},
		{Class: 0, MinGrams: 0, MaxGrams: 100},
	})
	require.NoError(t, err)
	bands := c.Bands()
	assert.Equal(t, 0, bands[0].Class)
	assert.Equal(t, 1, bands[1].Class)
}

func TestUnitWeight(t *testing.T) {
	assert.Equal(t, 500.0, UnitWeight(5000, 10))
	assert.Equal(t, 0.0, UnitWeight(5000, 0))
	assert.Equal(t, 0.0, UnitWeight(0, 3))
}

func TestInitialBandsFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bands.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"class":0,"min_grams":0,"max_grams":300},{"class":1,"min_grams":300,"max_grams":0}]`), 0o600))

	bands, err := InitialBands(path)
	require.NoError(t, err)
	assert.Len(t, bands, 2)

	bands, err = InitialBands("")
	require.NoError(t, err)
	assert.Len(t, bands, 11)

	_, err = InitialBands(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestReplaceAndLoad(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()
	require.NoError(t, db.AutoMigrate(&models.SizeClass{}))
	require.NoError(t, db.Create(DefaultBands()).Error)

	_, err = Replace(db, []models.SizeClass{
		{Class: 0, MinGrams: 0, MaxGrams: 250},
		{Class: 1, MinGrams: 250},
	})
	require.NoError(t, err)

	c, err := Load(context.Background(), db)
	require.NoError(t, err)
	assert.Len(t, c.Bands(), 2)
	got, err := c.Classify(400)
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	_, err = Replace(db, []models.SizeClass{{Class: 0, MinGrams: 0, MaxGrams: 10}, {Class: 3, MinGrams: 10}})
	assert.Error(t, err)
}

func TestHolder(t *testing.T) {
	a, err := NewClassifier(DefaultBands())
	require.NoError(t, err)
	b, err := NewClassifier([]models.SizeClass{{Class: 0, MinGrams: 0}})
	require.NoError(t, err)

	h := NewHolder(a)
	assert.Same(t, a, h.Get())
	h.Set(b)
	assert.Same(t, b, h.Get())
}
