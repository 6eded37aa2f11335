package models

// Identity は検証済みトークンから取り出した呼び出し元の情報です。
// UserID は sub クレームで、Todo のパーティションキーになります。
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
}
