package httpapi

// Result 统一响应信封
// message 在失败时携带稳定错误码（每种错误一个固定字符串，客户端据此区分）
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

const (
	ResultSuccess = 2000
	ResultError   = -1
)

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

func Fail(code string) Result[any] {
	return Result[any]{Code: ResultError, Type: "error", Message: code, Result: nil}
}
