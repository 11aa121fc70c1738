package models

// CodeSequence: last issued number for a human-readable code series.
type CodeSequence struct {
	Name   string `gorm:"primaryKey;size:50"`
	LastNo int    `gorm:"not null;default:0"`
}
