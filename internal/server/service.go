package server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "hotelreports.v1.ExtractionService"

// ExtractBatchMethod is the full method path clients invoke.
const ExtractBatchMethod = "/" + ServiceName + "/ExtractBatch"

// ExtractionServiceServer is the server API for the extraction service.
type ExtractionServiceServer interface {
	ExtractBatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

func extractBatchHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ExtractionServiceServer).ExtractBatch(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ExtractBatchMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ExtractionServiceServer).ExtractBatch(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ExtractionServiceDesc describes the service without generated stubs; messages are
// google.protobuf.Struct so no .proto of our own is needed.
var ExtractionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ExtractionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ExtractBatch",
			Handler:    extractBatchHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "hotelreports/v1/extraction.proto",
}

// RegisterExtractionServiceServer registers srv on s.
func RegisterExtractionServiceServer(s grpc.ServiceRegistrar, srv ExtractionServiceServer) {
	s.RegisterService(&ExtractionServiceDesc, srv)
}

// NewGRPCServer builds a gRPC server with the extraction and health services registered.
func NewGRPCServer(svc ExtractionServiceServer, logger *slog.Logger, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = slog.Default()
	}
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(loggingInterceptor(logger))}, opts...)
	grpcServer := grpc.NewServer(opts...)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	RegisterExtractionServiceServer(grpcServer, svc)
	return grpcServer, hs
}

func loggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if err != nil {
			logger.Warn("grpc.request.failed", "method", info.FullMethod, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
			return resp, err
		}
		logger.Info("grpc.request.ok", "method", info.FullMethod, "elapsed_ms", time.Since(start).Milliseconds())
		return resp, nil
	}
}
