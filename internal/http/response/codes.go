package response

// 响应码与 HTTP 状态码一致，游戏服务器只检查 HTTP 状态
const (
	CodeOK              = 200
	CodeBadRequest      = 400
	CodeForbidden       = 403
	CodeNotFound        = 404
	CodeTooManyRequests = 429
	CodeInternal        = 500
)
