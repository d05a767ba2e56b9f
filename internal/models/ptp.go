package models

import (
	"time"
)

// PTP is a customer's promise to pay a given amount by a given date.
// A nil PTPStatus means the promise is inactive or already satisfied.
type PTP struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	AccountID        uint      `gorm:"not null;index" json:"account_id"`
	AccountPaymentID uint      `gorm:"not null;index" json:"account_payment_id"`
	PTPDate          time.Time `gorm:"type:date;not null" json:"ptp_date"`
	PTPAmount        int64     `gorm:"not null" json:"ptp_amount"`
	PTPStatus        *string   `gorm:"size:30;index" json:"ptp_status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName specifies the table name for PTP
func (PTP) TableName() string {
	return "ptps"
}

// PTP status constants
const (
	PTPStatusActive    = "active"
	PTPStatusPartial   = "partial"
	PTPStatusBroken    = "broken"
	PTPStatusFulfilled = "fulfilled"
)

// IsActive returns true while the promise still has a status set
func (p *PTP) IsActive() bool {
	return p.PTPStatus != nil
}

// CoversDate reports whether the promise window covers the given date,
// i.e. the promise existed on that date and had not yet expired.
func (p *PTP) CoversDate(d time.Time) bool {
	day := d.Truncate(24 * time.Hour)
	created := p.CreatedAt.Truncate(24 * time.Hour)
	due := p.PTPDate.Truncate(24 * time.Hour)
	return !day.Before(created) && !day.After(due)
}

// IsExpiredAt reports whether the promise window has closed by the given date.
func (p *PTP) IsExpiredAt(d time.Time) bool {
	return p.PTPDate.Truncate(24 * time.Hour).Before(d.Truncate(24 * time.Hour))
}
