package models

// PageModel is a content document modules can analyze. Text is stored as
// markdown; the module runner consumes it directly as the user turn.
type PageModel struct {
	Base
	Title   string `json:"title"   gorm:"not null"`
	Excerpt string `json:"excerpt" gorm:"type:text"`
	Text    string `json:"text"    gorm:"type:longtext"`
}

func (PageModel) TableName() string { return "pages" }
