package repositories

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// PageKey はインデックス上の最後に返したアイテムのキー属性です (userId, todoId, ソートキー)。
// nil はカーソル無し (先頭から / これ以上無し) を意味します。
type PageKey map[string]string

// EncodePageKey は PageKey を base64url(JSON) の nextKey に変換します。nil なら nil を返します。
func EncodePageKey(key PageKey) (*string, error) {
	if len(key) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(key)
	if err != nil {
		return nil, fmt.Errorf("could not encode page key: %w", err)
	}
	s := base64.RawURLEncoding.EncodeToString(raw)
	return &s, nil
}

// DecodePageKey は nextKey を PageKey に戻します。空文字列は nil です。
func DecodePageKey(token string) (PageKey, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPageKey, err)
	}
	var key PageKey
	if err := json.Unmarshal(raw, &key); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPageKey, err)
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: empty key", ErrInvalidPageKey)
	}
	return key, nil
}

// check は userID とインデックスのキー属性 (userId, todoId, ソートキー) がちょうど揃っているかを確認します。
func (k PageKey) check(userID, sortAttr string) error {
	if k["userId"] != userID {
		return fmt.Errorf("%w: key belongs to another partition", ErrInvalidPageKey)
	}
	if k["todoId"] == "" || k[sortAttr] == "" {
		return fmt.Errorf("%w: missing %s", ErrInvalidPageKey, sortAttr)
	}
	if len(k) != 3 {
		return fmt.Errorf("%w: unexpected attributes", ErrInvalidPageKey)
	}
	return nil
}

func (k PageKey) attributeValues() map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(k))
	for name, value := range k {
		out[name] = &types.AttributeValueMemberS{Value: value}
	}
	return out
}

func pageKeyFromAttributes(av map[string]types.AttributeValue) PageKey {
	if len(av) == 0 {
		return nil
	}
	key := PageKey{}
	for name, value := range av {
		if s, ok := value.(*types.AttributeValueMemberS); ok {
			key[name] = s.Value
		}
	}
	return key
}
