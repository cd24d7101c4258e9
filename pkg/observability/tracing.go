package observability

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-xray-sdk-go/instrumentation/awsv2"
	"github.com/aws/aws-xray-sdk-go/xray"
)

// Tracer provides distributed tracing capabilities. A disabled tracer runs
// functions untraced.
type Tracer struct {
	serviceName string
	enabled     bool
	inLambda    bool
}

// NewTracer creates a new tracer instance
func NewTracer(serviceName string, enabled bool) *Tracer {
	return &Tracer{
		serviceName: serviceName,
		enabled:     enabled,
		inLambda:    os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "",
	}
}

// Enabled reports whether segments are recorded
func (t *Tracer) Enabled() bool {
	return t.enabled
}

// InstrumentAWS adds X-Ray middleware to every SDK client built from cfg
func (t *Tracer) InstrumentAWS(cfg *aws.Config) {
	if t.enabled {
		awsv2.AWSV2Instrumentor(&cfg.APIOptions)
	}
}

// HTTPClient wraps c so outbound calls are recorded as subsegments
func (t *Tracer) HTTPClient(c *http.Client) *http.Client {
	if !t.enabled {
		return c
	}
	return xray.Client(c)
}

// StartSegment starts a new trace segment
func (t *Tracer) StartSegment(ctx context.Context, name string) (context.Context, *xray.Segment) {
	return xray.BeginSegment(ctx, fmt.Sprintf("%s.%s", t.serviceName, name))
}

// TraceFunction wraps a function in a subsegment. Outside Lambda, where
// there is no parent segment, a segment is started instead.
func (t *Tracer) TraceFunction(ctx context.Context, name string, fn func(context.Context) error) error {
	if !t.enabled {
		return fn(ctx)
	}

	var seg *xray.Segment
	if !t.inLambda && xray.GetSegment(ctx) == nil {
		ctx, seg = t.StartSegment(ctx, name)
	} else {
		ctx, seg = xray.BeginSubsegment(ctx, name)
	}
	if seg == nil {
		return fn(ctx)
	}
	err := fn(ctx)
	seg.Close(err)
	return err
}

// Rename sets the name of the current segment. Names are only emitted on
// close, so this can run any time before then.
func (t *Tracer) Rename(ctx context.Context, name string) {
	if !t.enabled {
		return
	}
	if seg := xray.GetSegment(ctx); seg != nil {
		seg.Lock()
		seg.Name = name
		seg.Unlock()
	}
}

// AddAnnotation adds an indexed annotation to the current segment
func (t *Tracer) AddAnnotation(ctx context.Context, key string, value string) {
	if !t.enabled {
		return
	}
	if seg := xray.GetSegment(ctx); seg != nil {
		_ = seg.AddAnnotation(key, value)
	}
}

// RecordError records an error in the current segment
func (t *Tracer) RecordError(ctx context.Context, err error) {
	if !t.enabled {
		return
	}
	if seg := xray.GetSegment(ctx); seg != nil {
		_ = seg.AddError(err)
	}
}
