package response

// AppError 业务状态码 + 文案 key，Err 为只写日志的内部原因
type AppError struct {
	Code int
	Key  string
	Err  error
}

// NewAppError 构造业务错误
func NewAppError(code int, key string, err error) *AppError {
	return &AppError{Code: code, Key: key, Err: err}
}

// Message 面向用户的提示文案
func (e *AppError) Message() string {
	return Message(e.Key)
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Key
	}
	return e.Key + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}
