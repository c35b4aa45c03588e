// Package model はドメインモデルを定義する。
package model

// AvailabilityQuery は1リクエスト限りの空き時間照会条件を表す。
// Start/EndはRFC3339形式の文字列をそのままGoogle Calendar APIに渡す。
// 永続化はしない。
type AvailabilityQuery struct {
	Timezone string
	Start    string
	End      string
}
