package notes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Defaults applied by Create when the input leaves a field empty.
const (
	DefaultTitle     = "New Note"
	DefaultCategory  = "Personal"
	DefaultColor     = "yellow"
	DefaultTextColor = "#000000"
)

// Categories lists the categories a note may carry.
var Categories = []string{"Personal", "Work", "Ideas", "Other"}

// ValidCategory reports whether c is one of Categories.
func ValidCategory(c string) bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// Note is a single sticky note owned by one user.
//
// Column names are single lowercase words so that property names in a
// $filter expression resolve unquoted on both SQLite and PostgreSQL,
// whatever their case.
type Note struct {
	ID        uint      `json:"id" gorm:"column:id;primaryKey"`
	UserID    uint      `json:"-" gorm:"column:userid;index;not null"`
	Title     string    `json:"title" gorm:"column:title;not null"`
	Category  string    `json:"category" gorm:"column:category;not null"`
	Content   string    `json:"content" gorm:"column:content"`
	Color     string    `json:"color" gorm:"column:color"`
	Pinned    bool      `json:"pinned" gorm:"column:pinned;not null;default:false"`
	TextColor string    `json:"textColor" gorm:"column:textcolor"`
	Position  *Position `json:"position" gorm:"column:position;type:text"`
	Width     string    `json:"width" gorm:"column:width"`
	Height    string    `json:"height" gorm:"column:height"`
	CreatedAt time.Time `json:"createdAt" gorm:"column:createdat"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"column:updatedat"`
}

// TableName pins the table name used by gorm.
func (Note) TableName() string { return "notes" }

// Position is the board location of a note. It is stored as a JSON document.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Value implements driver.Valuer.
func (p Position) Value() (driver.Value, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (p *Position) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*p = Position{}
		return nil
	case string:
		return json.Unmarshal([]byte(v), p)
	case []byte:
		return json.Unmarshal(v, p)
	default:
		return fmt.Errorf("notes: cannot scan %T into Position", src)
	}
}

// NoteInput carries the fields of a new note. Empty fields take the defaults.
type NoteInput struct {
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Content   string    `json:"content"`
	Color     string    `json:"color"`
	Pinned    bool      `json:"pinned"`
	TextColor string    `json:"textColor"`
	Position  *Position `json:"position"`
	Width     string    `json:"width"`
	Height    string    `json:"height"`
}

// NotePatch is a merge update. Nil fields keep their stored value.
type NotePatch struct {
	Title     *string   `json:"title,omitempty"`
	Category  *string   `json:"category,omitempty"`
	Content   *string   `json:"content,omitempty"`
	Color     *string   `json:"color,omitempty"`
	Pinned    *bool     `json:"pinned,omitempty"`
	TextColor *string   `json:"textColor,omitempty"`
	Position  *Position `json:"position,omitempty"`
	Width     *string   `json:"width,omitempty"`
	Height    *string   `json:"height,omitempty"`
}

func (p NotePatch) validate() error {
	if p.Category != nil && !ValidCategory(*p.Category) {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, *p.Category)
	}
	return nil
}

func (p NotePatch) apply(n *Note) {
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Category != nil {
		n.Category = *p.Category
	}
	if p.Content != nil {
		n.Content = *p.Content
	}
	if p.Color != nil {
		n.Color = *p.Color
	}
	if p.Pinned != nil {
		n.Pinned = *p.Pinned
	}
	if p.TextColor != nil {
		n.TextColor = *p.TextColor
	}
	if p.Position != nil {
		pos := *p.Position
		n.Position = &pos
	}
	if p.Width != nil {
		n.Width = *p.Width
	}
	if p.Height != nil {
		n.Height = *p.Height
	}
}

func newNote(userID uint, in NoteInput) (*Note, error) {
	n := &Note{
		UserID:    userID,
		Title:     in.Title,
		Category:  in.Category,
		Content:   in.Content,
		Color:     in.Color,
		Pinned:    in.Pinned,
		TextColor: in.TextColor,
		Position:  in.Position,
		Width:     in.Width,
		Height:    in.Height,
	}
	if n.Title == "" {
		n.Title = DefaultTitle
	}
	if n.Category == "" {
		n.Category = DefaultCategory
	}
	if n.Color == "" {
		n.Color = DefaultColor
	}
	if n.TextColor == "" {
		n.TextColor = DefaultTextColor
	}
	if !ValidCategory(n.Category) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, n.Category)
	}
	return n, nil
}
