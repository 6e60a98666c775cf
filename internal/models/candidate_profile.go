package models

import "gorm.io/datatypes"

// CandidateProfile holds the candidate side of an account.
type CandidateProfile struct {
	BaseModel

	AccountID string `gorm:"size:36;uniqueIndex;not null" json:"account_id"`

	FirstName string                      `gorm:"size:120;not null" json:"first_name"`
	LastName  string                      `gorm:"size:120;not null" json:"last_name"`
	Phone     string                      `gorm:"size:64" json:"phone"`
	Location  string                      `gorm:"size:255" json:"location"`
	Bio       string                      `gorm:"type:text" json:"bio"`
	Skills    datatypes.JSONSlice[string] `json:"skills"`
	Avatar    string                      `gorm:"size:512" json:"avatar"`
	Resume    string                      `gorm:"size:512" json:"resume"`
	AdminCV   string                      `gorm:"column:admin_cv;size:512" json:"admin_cv"`

	Education             datatypes.JSON `json:"education"`
	Experience            datatypes.JSON `json:"experience"`
	ProfessionalFormation datatypes.JSON `json:"professional_formation"`
	Projects              datatypes.JSON `json:"projects"`

	HasGrowcoachFormation bool           `gorm:"not null;default:false;index" json:"has_growcoach_formation"`
	GrowcoachFormation    datatypes.JSON `json:"growcoach_formation"`
}
