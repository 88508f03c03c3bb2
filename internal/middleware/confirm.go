package middleware

import (
	"net/http"
	"strconv"
)

// ConfirmHeaderName は破壊的操作の確認を表すヘッダー名。
const ConfirmHeaderName = "X-Confirm"

// Confirmed はリクエストに破壊的操作の確認が付与されているかを返す。
// X-Confirmヘッダーまたはconfirmクエリパラメータが真であれば確認済みとみなす。
func Confirmed(r *http.Request) bool {
	if v := r.Header.Get(ConfirmHeaderName); v != "" {
		ok, err := strconv.ParseBool(v)
		return err == nil && ok
	}
	ok, err := strconv.ParseBool(r.URL.Query().Get("confirm"))
	return err == nil && ok
}
