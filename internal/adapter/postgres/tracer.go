package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// QueryObserver receives the duration and outcome of every query.
type QueryObserver interface {
	ObserveQuery(query string, elapsed time.Duration, err error)
}

// MetricsTracer implements pgx.QueryTracer and forwards timings to a QueryObserver.
type MetricsTracer struct {
	observer QueryObserver
}

var _ pgx.QueryTracer = (*MetricsTracer)(nil)

func NewMetricsTracer(observer QueryObserver) *MetricsTracer {
	return &MetricsTracer{observer: observer}
}

type queryContextKey struct{}

type queryContext struct {
	start time.Time
	name  string
}

func (t *MetricsTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryContextKey{}, queryContext{
		start: time.Now(),
		name:  statementKind(data.SQL),
	})
}

func (t *MetricsTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	qctx, ok := ctx.Value(queryContextKey{}).(queryContext)
	if !ok {
		return
	}
	t.observer.ObserveQuery(qctx.name, time.Since(qctx.start), data.Err)
}

// statementKind reduces SQL to its leading keyword to keep label cardinality low.
func statementKind(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	kind := strings.ToUpper(fields[0])
	if len(kind) > 20 {
		kind = kind[:20]
	}
	return kind
}
