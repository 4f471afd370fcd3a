package models

import "time"

// Table statuses.
const (
	TableStatusAvailable = "available"
	TableStatusOccupied  = "occupied"
	TableStatusReserved  = "reserved"
	TableStatusDirty     = "dirty"
)

type Table struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	TableNumber string     `gorm:"type:varchar(50);not null;uniqueIndex" json:"table_number"`
	Status      string     `gorm:"type:varchar(50);not null;default:'available'" json:"status"`
	QRCode      string     `gorm:"column:qr_code;type:text" json:"qr_code,omitempty"`
	QRExpire    *time.Time `gorm:"column:qr_expire" json:"qr_expire,omitempty"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}
