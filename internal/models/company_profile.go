package models

// CompanyProfile holds the company side of an account.
type CompanyProfile struct {
	BaseModel

	AccountID string `gorm:"size:36;uniqueIndex;not null" json:"account_id"`

	CompanyName string `gorm:"size:255;not null;index" json:"company_name"`
	Phone       string `gorm:"size:64" json:"phone"`
	Location    string `gorm:"size:255" json:"location"`
	Description string `gorm:"type:text" json:"description"`
	Website     string `gorm:"size:512" json:"website"`
	Industry    string `gorm:"size:255" json:"industry"`
	Logo        string `gorm:"size:512" json:"logo"`
	FoundedYear int    `json:"founded_year,omitempty"`
	CompanySize string `gorm:"size:64" json:"company_size"`
}
