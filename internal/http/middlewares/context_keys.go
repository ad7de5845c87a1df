package middlewares

type ctxKey string

const (
	CtxEmail     ctxKey = "auth.email"
	CtxRole      ctxKey = "auth.role"
	CtxRequestID ctxKey = "request_id"
)
