package receiver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"syscall"

	collogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/nixlim/camwatch/internal/config"
)

// GRPCReceiver implements the OTLP LogsService and turns each log record
// into a detection sample.
type GRPCReceiver struct {
	collogspb.UnimplementedLogsServiceServer

	cfg  config.ReceiverConfig
	sink Sink
	opts options

	listener net.Listener
	server   *grpc.Server
}

// NewGRPCReceiver creates a receiver that submits samples to sink. Call
// Start to begin listening.
func NewGRPCReceiver(cfg config.ReceiverConfig, sink Sink, opts ...Option) *GRPCReceiver {
	return &GRPCReceiver{
		cfg:  cfg,
		sink: sink,
		opts: buildOptions(opts),
	}
}

// Start binds the configured port and serves in the background.
func (r *GRPCReceiver) Start(ctx context.Context) error {
	lis, err := listen(r.cfg.Bind, r.cfg.GRPCPort)
	if err != nil {
		return err
	}
	r.listener = lis
	r.server = grpc.NewServer()
	collogspb.RegisterLogsServiceServer(r.server, r)

	r.opts.logger.WithField("addr", lis.Addr().String()).Info("OTLP gRPC receiver listening")
	go func() {
		if err := r.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			r.opts.logger.WithError(err).Error("gRPC receiver stopped")
		}
	}()
	return nil
}

// Export handles one OTLP logs export. Invalid records are reported through
// partial success rather than failing the whole request.
func (r *GRPCReceiver) Export(ctx context.Context, req *collogspb.ExportLogsServiceRequest) (*collogspb.ExportLogsServiceResponse, error) {
	res, err := ingestLogs(ctx, req.GetResourceLogs(), r.sink, r.opts, "grpc")
	if err != nil {
		return nil, status.Error(codes.Unavailable, "receiver is shutting down")
	}
	return exportResponse(res), nil
}

// Addr returns the bound address, or nil before Start.
func (r *GRPCReceiver) Addr() net.Addr {
	if r.listener == nil {
		return nil
	}
	return r.listener.Addr()
}

// Stop gracefully stops the server.
func (r *GRPCReceiver) Stop() {
	if r.server != nil {
		r.server.GracefulStop()
	}
}

func exportResponse(res ingestResult) *collogspb.ExportLogsServiceResponse {
	resp := &collogspb.ExportLogsServiceResponse{}
	if res.rejected > 0 {
		resp.PartialSuccess = &collogspb.ExportLogsPartialSuccess{
			RejectedLogRecords: int64(res.rejected),
			ErrorMessage:       res.firstErr.Error(),
		}
	}
	return resp
}

func listen(bind string, port int) (net.Listener, error) {
	lis, err := net.Listen("tcp", net.JoinHostPort(bind, strconv.Itoa(port)))
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("port %d already in use", port)
		}
		return nil, fmt.Errorf("listening on %s:%d: %w", bind, port, err)
	}
	return lis, nil
}
