package model

import "time"

// News はBK室からのお知らせ・ニュース記事を表す。
// BodyHTMLは保存前にサニタイズ済みであることを前提とする。
type News struct {
	ID        string
	Title     string
	BodyHTML  string
	AuthorID  string
	Published bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
