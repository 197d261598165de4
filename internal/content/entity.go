// AngelaMos | 2026
// entity.go

package content

import (
	"time"
)

// Folder is a purchasable bundle of notes for one subject.
type Folder struct {
	ID          string    `db:"id"          json:"id"`
	Name        string    `db:"name"        json:"name"`
	Description string    `db:"description" json:"description"`
	Department  string    `db:"department"  json:"department"`
	Semester    string    `db:"semester"    json:"semester"`
	Subject     string    `db:"subject"     json:"subject"`
	Price       int       `db:"price"       json:"price"`
	IsActive    bool      `db:"is_active"   json:"is_active"`
	CreatedAt   time.Time `db:"created_at"  json:"created_at"`
}

type Note struct {
	ID        string    `db:"id"         json:"id"`
	FolderID  string    `db:"folder_id"  json:"folder_id"`
	Title     string    `db:"title"      json:"title"`
	FileURL   string    `db:"file_url"   json:"file_url"`
	FilePath  string    `db:"file_path"  json:"-"`
	FileName  string    `db:"file_name"  json:"file_name"`
	FileSize  int64     `db:"file_size"  json:"file_size"`
	IsActive  bool      `db:"is_active"  json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
