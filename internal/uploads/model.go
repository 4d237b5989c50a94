package uploads

import "time"

// Model is a customer-supplied 3D model file tracked for quoting.
type Model struct {
	ID           string    `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	OwnerID      string    `gorm:"column:owner_id;size:190;not null;default:'';index" json:"ownerId,omitempty"`
	OriginalName string    `gorm:"column:original_name;size:512;not null" json:"filename"`
	StoredName   string    `gorm:"column:stored_name;size:255;not null;uniqueIndex" json:"-"`
	SizeBytes    int64     `gorm:"column:size_bytes;not null;default:0" json:"filesize"`
	ContentType  string    `gorm:"column:content_type;size:255;not null;default:''" json:"mimeType,omitempty"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName exposes the table backing uploaded models.
func (Model) TableName() string {
	return "models"
}
