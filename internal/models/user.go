package models

import "time"

// KYC statuses
const (
	KYCStatusPending  = "pending"
	KYCStatusApproved = "approved"
	KYCStatusRejected = "rejected"
)

// User is the wallet owner. Authentication and KYC review live outside
// this service; only the fields the ledger core needs are kept here.
type User struct {
	ID        uint   `gorm:"primarykey"`
	Email     string `gorm:"uniqueIndex;not null"`
	Phone     string `gorm:"index"`
	Role      string `gorm:"default:'user'"`
	KYCStatus string `gorm:"default:'pending'"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
