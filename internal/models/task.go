package models

// Task is a simple to-do item.
type Task struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Title       string `gorm:"size:500;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Completed   bool   `gorm:"default:false" json:"completed"`
}

func (Task) TableName() string { return "tasks" }
