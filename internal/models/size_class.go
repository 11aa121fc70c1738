package models

// SizeClass: weight band per piece. MaxGrams is exclusive; 0 means unbounded.
type SizeClass struct {
	Class    int     `gorm:"primaryKey;autoIncrement:false" json:"class"`
	MinGrams float64 `gorm:"not null" json:"min_grams"`
	MaxGrams float64 `gorm:"not null" json:"max_grams"`
}
