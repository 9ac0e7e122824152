package globals

import (
	"context"

	"bvpscraper/internal/components/chrono"
	"bvpscraper/internal/service"
)

const key = "bvp.ctx"

type Value struct {
	Service *service.Service
	// Clock decides what "today" is when no date is given.
	Clock chrono.API
	// Format is either "table" or "json".
	Format string
}

func Set(ctx context.Context, value *Value) context.Context {
	return context.WithValue(ctx, key, value)
}

func Get(ctx context.Context) *Value {
	return ctx.Value(key).(*Value)
}
