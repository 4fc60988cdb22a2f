package internal

import (
	"context"
	"net/http"
)

const HeaderCorrelationId string = "Correlation-Id"

type ctxKeyCorrelationId struct{}

func CtxWithCorrelationId(ctx context.Context, correlationId string) context.Context {
	return context.WithValue(ctx, ctxKeyCorrelationId{}, correlationId)
}

func CorrelationIdFromCtx(ctx context.Context) string {
	if correlationId, ok := ctx.Value(ctxKeyCorrelationId{}).(string); ok {
		return correlationId
	}
	return ""
}

// CtxFromRequest carries the request's correlation id (or a fresh one) in the
// request context.
func CtxFromRequest(request *http.Request) context.Context {
	correlationId := request.Header.Get(HeaderCorrelationId)
	if correlationId == "" {
		correlationId = GenerateId()
	}
	return CtxWithCorrelationId(request.Context(), correlationId)
}
