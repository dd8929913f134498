package models

import "github.com/google/uuid"

type File struct {
	BaseModel
	// ObjectKey is the opaque id of the blob in the object store.
	ObjectKey    string     `json:"-" gorm:"type:text;not null"`
	OriginalName string     `json:"originalName" gorm:"type:varchar(255);not null"`
	Size         int64      `json:"size" gorm:"not null;default:0"`
	MimeType     string     `json:"mimeType" gorm:"type:varchar(255);not null"`
	OwnerID      uuid.UUID  `json:"ownerID" gorm:"type:uuid;not null;index"`
	FolderID     *uuid.UUID `json:"folderID,omitempty" gorm:"type:uuid;index"`

	Owner  User        `json:"owner,omitempty" gorm:"foreignKey:OwnerID;references:ID"`
	Folder *Folder     `json:"folder,omitempty" gorm:"foreignKey:FolderID"`
	Shares []ShareLink `json:"-" gorm:"foreignKey:FileID"`
}

func (File) TableName() string {
	return "files"
}
