package receiver

import (
	"context"
	"fmt"
	"strconv"
	"time"

	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	logspb "go.opentelemetry.io/proto/otlp/logs/v1"

	"github.com/nixlim/camwatch/internal/detection"
	"github.com/nixlim/camwatch/internal/logging"
)

// Log record attributes carrying a detection. The detector ID may also be
// set once on the resource.
const (
	AttrDetector      = "camwatch.detector"
	AttrScore         = "camwatch.score"
	AttrBox           = "camwatch.box"
	AttrPrompt        = "camwatch.prompt"
	AttrMethod        = "camwatch.method"
	AttrArea          = "camwatch.area"
	AttrAreaThreshold = "camwatch.area_threshold"
)

// requestFromLogRecord extracts a DetectionRequest from an OTLP log record.
func requestFromLogRecord(resource []*commonpb.KeyValue, rec *logspb.LogRecord) (DetectionRequest, error) {
	attrs := rec.GetAttributes()

	req := DetectionRequest{
		Detector: stringAttr(attrs, AttrDetector),
		Prompt:   stringAttr(attrs, AttrPrompt),
		Method:   stringAttr(attrs, AttrMethod),
	}
	if req.Detector == "" {
		req.Detector = stringAttr(resource, AttrDetector)
	}

	var err error
	if req.Score, err = floatAttr(attrs, AttrScore); err != nil {
		return req, err
	}
	if req.Area, err = floatAttr(attrs, AttrArea); err != nil {
		return req, err
	}
	if th, err := floatAttr(attrs, AttrAreaThreshold); err != nil {
		return req, err
	} else if th != nil {
		req.AreaThreshold = *th
	}
	if req.Box, err = boxAttr(attrs); err != nil {
		return req, err
	}

	switch {
	case rec.GetTimeUnixNano() != 0:
		ts := time.Unix(0, int64(rec.GetTimeUnixNano()))
		req.Timestamp = &ts
	case rec.GetObservedTimeUnixNano() != 0:
		ts := time.Unix(0, int64(rec.GetObservedTimeUnixNano()))
		req.Timestamp = &ts
	}
	return req, nil
}

func findAttr(attrs []*commonpb.KeyValue, key string) *commonpb.AnyValue {
	for _, kv := range attrs {
		if kv.GetKey() == key {
			return kv.GetValue()
		}
	}
	return nil
}

func stringAttr(attrs []*commonpb.KeyValue, key string) string {
	return findAttr(attrs, key).GetStringValue()
}

// floatAttr accepts double, int or numeric string values. A missing
// attribute yields nil.
func floatAttr(attrs []*commonpb.KeyValue, key string) (*float64, error) {
	v := findAttr(attrs, key)
	if v == nil {
		return nil, nil
	}
	var f float64
	switch val := v.GetValue().(type) {
	case *commonpb.AnyValue_DoubleValue:
		f = val.DoubleValue
	case *commonpb.AnyValue_IntValue:
		f = float64(val.IntValue)
	case *commonpb.AnyValue_StringValue:
		parsed, err := strconv.ParseFloat(val.StringValue, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid number %q", key, val.StringValue)
		}
		f = parsed
	default:
		return nil, fmt.Errorf("%s: unsupported value type %T", key, val)
	}
	return &f, nil
}

// boxAttr reads the box as "x1,y1,x2,y2" or as an array of four numbers.
func boxAttr(attrs []*commonpb.KeyValue) ([]float64, error) {
	v := findAttr(attrs, AttrBox)
	if v == nil {
		return nil, nil
	}
	switch val := v.GetValue().(type) {
	case *commonpb.AnyValue_StringValue:
		return parseBox(val.StringValue)
	case *commonpb.AnyValue_ArrayValue:
		values := val.ArrayValue.GetValues()
		out := make([]float64, 0, len(values))
		for _, item := range values {
			switch n := item.GetValue().(type) {
			case *commonpb.AnyValue_DoubleValue:
				out = append(out, n.DoubleValue)
			case *commonpb.AnyValue_IntValue:
				out = append(out, float64(n.IntValue))
			default:
				return nil, fmt.Errorf("%s: array elements must be numbers", AttrBox)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s: unsupported value type %T", AttrBox, val)
	}
}

// ingestResult counts the log records of one export request.
type ingestResult struct {
	accepted int
	rejected int
	firstErr error
}

// ingestLogs converts every log record and submits the valid ones. Invalid
// records are counted and skipped. The returned error is non-nil only when
// the sink stopped accepting samples.
func ingestLogs(ctx context.Context, resourceLogs []*logspb.ResourceLogs, sink Sink, o options, transport string) (ingestResult, error) {
	var res ingestResult
	for _, rl := range resourceLogs {
		resource := rl.GetResource().GetAttributes()
		for _, sl := range rl.GetScopeLogs() {
			for _, rec := range sl.GetLogRecords() {
				s, err := convertRecord(resource, rec, o.now())
				if err != nil {
					res.rejected++
					if res.firstErr == nil {
						res.firstErr = err
					}
					o.logger.WithFields(logging.Fields{
						"transport": transport,
						"error":     err.Error(),
					}).Debug("rejected detection record")
					continue
				}
				if err := sink.Submit(ctx, s); err != nil {
					return res, err
				}
				o.debug.LogSample(transport, s)
				res.accepted++
			}
		}
	}
	if res.rejected > 0 {
		o.logger.WithFields(logging.Fields{
			"transport": transport,
			"accepted":  res.accepted,
			"rejected":  res.rejected,
		}).WithError(res.firstErr).Warn("rejected detection records")
	}
	return res, nil
}

func convertRecord(resource []*commonpb.KeyValue, rec *logspb.LogRecord, now time.Time) (detection.Sample, error) {
	req, err := requestFromLogRecord(resource, rec)
	if err != nil {
		return detection.Sample{}, err
	}
	return req.Sample(now)
}
