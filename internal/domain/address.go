package domain

import "strings"

// Address is the single current shipping address a user keeps.
type Address struct {
	ID     uint64 `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID uint64 `json:"userId" gorm:"not null;uniqueIndex"`
	AddressSnapshot
}

// AddressSnapshot is the value copied onto an order at creation time.
type AddressSnapshot struct {
	Province   string `json:"province" gorm:"type:varchar(128)"`
	District   string `json:"district" gorm:"type:varchar(128)"`
	City       string `json:"city" gorm:"type:varchar(128)"`
	StreetLine string `json:"streetLine" gorm:"type:varchar(255)"`
	Landmark   string `json:"landmark" gorm:"type:varchar(255)"`
}

// Missing lists required fields that are blank. Landmark is optional.
func (a AddressSnapshot) Missing() []string {
	fields := []struct{ name, value string }{
		{"province", a.Province},
		{"district", a.District},
		{"city", a.City},
		{"streetLine", a.StreetLine},
	}
	var out []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			out = append(out, f.name)
		}
	}
	return out
}

func (a AddressSnapshot) Normalize() AddressSnapshot {
	return AddressSnapshot{
		Province:   strings.TrimSpace(a.Province),
		District:   strings.TrimSpace(a.District),
		City:       strings.TrimSpace(a.City),
		StreetLine: strings.TrimSpace(a.StreetLine),
		Landmark:   strings.TrimSpace(a.Landmark),
	}
}
