package models

import "time"

// OwnershipRecord is an append-only entry written on every successful verification.
type OwnershipRecord struct {
	ID                    uint               `gorm:"primaryKey" json:"id"`
	WebsiteID             uint               `gorm:"not null;index" json:"websiteId"`
	UserID                uint               `gorm:"not null;index" json:"userId"`
	Domain                string             `gorm:"size:253;not null;index" json:"domain"`
	Method                VerificationMethod `gorm:"type:varchar(32);not null" json:"method"`
	GoogleAccountEmail    string             `gorm:"size:254" json:"googleAccountEmail,omitempty"`
	TransferredFromUserID *uint              `json:"transferredFromUserId,omitempty"`
	CreatedAt             time.Time          `json:"createdAt"`
}

// TableName specifies the table name for GORM.
func (OwnershipRecord) TableName() string {
	return "ownership_records"
}
