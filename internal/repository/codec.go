package repository

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// envelopeVersion は現在の保存フォーマットのバージョン。
const envelopeVersion = 1

// envelope はコレクションを保存する際の外側の形式。
// 旧形式（配列のみ）も読み込み時に受け付ける。
type envelope struct {
	Version int               `json:"version"`
	Items   []json.RawMessage `json:"items"`
}

var errUnknownFormat = errors.New("value is neither an envelope nor an array")

// encodeItems はアイテムをenvelope形式にエンコードする。
func encodeItems[T any](items []T) ([]byte, error) {
	raw := make([]json.RawMessage, 0, len(items))
	for i := range items {
		b, err := json.Marshal(items[i])
		if err != nil {
			return nil, fmt.Errorf("failed to encode item %d: %w", i, err)
		}
		raw = append(raw, b)
	}
	return json.Marshal(envelope{Version: envelopeVersion, Items: raw})
}

// decodeRaw は保存値を個々のアイテムのJSONに分解する。
// 値が空の場合は空スライスを返す。
func decodeRaw(value []byte) (version int, items []json.RawMessage, err error) {
	value = bytes.TrimSpace(value)
	if len(value) == 0 || bytes.Equal(value, []byte("null")) {
		return envelopeVersion, nil, nil
	}

	switch value[0] {
	case '[':
		if err := json.Unmarshal(value, &items); err != nil {
			return 0, nil, err
		}
		return 0, items, nil
	case '{':
		var env envelope
		if err := json.Unmarshal(value, &env); err != nil {
			return 0, nil, err
		}
		return env.Version, env.Items, nil
	default:
		return 0, nil, errUnknownFormat
	}
}
