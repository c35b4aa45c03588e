// Package model はドメインモデルを定義する。
package model

// Member は空き時間照会の対象となるチームメンバーを表す。
// IDはリポジトリが単調増加で採番する。
type Member struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	CalendarID string `json:"calendarId"`
}
