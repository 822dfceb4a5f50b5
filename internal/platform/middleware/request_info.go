package middleware

import (
	"context"

	"github.com/labstack/echo/v4"
)

type requestInfoKey struct{}

// RequestInfo carries the network details of the current request for audit
// recording.
type RequestInfo struct {
	IPAddress string
	UserAgent string
}

// CaptureRequestInfo stores the caller's address and user agent in the
// request context so services deep in the call chain can attach them to
// audit entries.
func CaptureRequestInfo() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			info := RequestInfo{
				IPAddress: c.RealIP(),
				UserAgent: c.Request().UserAgent(),
			}
			ctx := context.WithValue(c.Request().Context(), requestInfoKey{}, info)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// RequestInfoFromContext returns the captured request details, or a zero
// value outside an HTTP request.
func RequestInfoFromContext(ctx context.Context) RequestInfo {
	if info, ok := ctx.Value(requestInfoKey{}).(RequestInfo); ok {
		return info
	}
	return RequestInfo{}
}
