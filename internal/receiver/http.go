package receiver

import (
	"context"
	"errors"
	"io"
	"mime"
	"net"
	"net/http"
	"time"

	collogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/nixlim/camwatch/internal/config"
)

const maxBodyBytes = 4 << 20

// HTTPReceiver serves OTLP/HTTP log exports on /v1/logs in protobuf or
// JSON encoding.
type HTTPReceiver struct {
	cfg  config.ReceiverConfig
	sink Sink
	opts options

	listener net.Listener
	server   *http.Server
}

// NewHTTPReceiver creates a receiver that submits samples to sink.
func NewHTTPReceiver(cfg config.ReceiverConfig, sink Sink, opts ...Option) *HTTPReceiver {
	return &HTTPReceiver{
		cfg:  cfg,
		sink: sink,
		opts: buildOptions(opts),
	}
}

// Start binds the configured port and serves in the background.
func (r *HTTPReceiver) Start(ctx context.Context) error {
	lis, err := listen(r.cfg.Bind, r.cfg.HTTPPort)
	if err != nil {
		return err
	}
	r.listener = lis

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/logs", r.handleLogs)
	r.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	r.opts.logger.WithField("addr", lis.Addr().String()).Info("OTLP HTTP receiver listening")
	go func() {
		if err := r.server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.opts.logger.WithError(err).Error("HTTP receiver stopped")
		}
	}()
	return nil
}

func (r *HTTPReceiver) handleLogs(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	useJSON := isJSON(req.Header.Get("Content-Type"))

	var export collogspb.ExportLogsServiceRequest
	if useJSON {
		err = protojson.UnmarshalOptions{DiscardUnknown: true}.Unmarshal(body, &export)
	} else {
		err = proto.Unmarshal(body, &export)
	}
	if err != nil {
		r.opts.logger.WithError(err).Debug("invalid OTLP logs payload")
		http.Error(w, "invalid OTLP logs payload", http.StatusBadRequest)
		return
	}

	res, err := ingestLogs(req.Context(), export.GetResourceLogs(), r.sink, r.opts, "http")
	if err != nil {
		http.Error(w, "receiver is shutting down", http.StatusServiceUnavailable)
		return
	}

	resp := exportResponse(res)
	var out []byte
	if useJSON {
		out, err = protojson.Marshal(resp)
		w.Header().Set("Content-Type", "application/json")
	} else {
		out, err = proto.Marshal(resp)
		w.Header().Set("Content-Type", "application/x-protobuf")
	}
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}

// Addr returns the bound address, or nil before Start.
func (r *HTTPReceiver) Addr() net.Addr {
	if r.listener == nil {
		return nil
	}
	return r.listener.Addr()
}

// Stop shuts the server down, waiting up to five seconds for in-flight
// requests.
func (r *HTTPReceiver) Stop() {
	if r.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = r.server.Shutdown(ctx)
}
