package models

// Game — запись игрового каталога. Имя уникально без учёта регистра.
type Game struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`

	CoverKey *string `json:"-" db:"cover_key"`
	CoverURL *string `json:"cover_url,omitempty" db:"-"`
}
