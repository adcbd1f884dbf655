package server

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/hotel-reports/internal/llm"
	"github.com/joseph-ayodele/hotel-reports/internal/pipeline"
	"github.com/joseph-ayodele/hotel-reports/internal/testutil"
)

func dial(t *testing.T, fake *testutil.FakeExtractor) *grpc.ClientConn {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	batch := pipeline.NewBatch(logger, pipeline.NewProcessor(logger, fake, 0), 0)
	srv, _ := NewGRPCServer(NewExtractionServer(batch, logger), logger)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func fileValue(name, mimeType string, data []byte) *structpb.Value {
	return structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
		"name":      structpb.NewStringValue(name),
		"mime_type": structpb.NewStringValue(mimeType),
		"data":      structpb.NewStringValue(base64.StdEncoding.EncodeToString(data)),
	}})
}

func request(files ...*structpb.Value) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"files": structpb.NewListValue(&structpb.ListValue{Values: files}),
	}}
}

func invoke(t *testing.T, conn *grpc.ClientConn, req *structpb.Struct) (*structpb.Struct, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp := &structpb.Struct{}
	err := conn.Invoke(ctx, ExtractBatchMethod, req, resp)
	return resp, err
}

func TestExtractBatch_OK(t *testing.T) {
	fake := testutil.NewFakeExtractor().
		On("q1.pdf", testutil.FakeResponse{Delay: 30 * time.Millisecond})
	conn := dial(t, fake)

	resp, err := invoke(t, conn, request(
		fileValue("q1.pdf", "application/pdf", []byte("%PDF q1")),
		fileValue("q2.pdf", "application/pdf", []byte("%PDF q2")),
	))
	require.NoError(t, err)

	res, err := DecodeResult(resp)
	require.NoError(t, err)
	require.Len(t, res.Reports, 2)
	assert.Equal(t, "q1.pdf", res.Reports[0].FileName)
	assert.Equal(t, "q2.pdf", res.Reports[1].FileName)
	require.NotNil(t, res.Reports[1].Data.KPIs)
	assert.Equal(t, "q2.pdf", res.Reports[1].Data.KPIs.AnalysisPeriod)
	assert.Len(t, res.Reports[0].Data.DetailedData, 2)
}

func TestExtractBatch_Errors(t *testing.T) {
	fake := testutil.NewFakeExtractor().
		On("invalid.pdf", testutil.FakeResponse{Err: &llm.ValidationError{Missing: []string{"kpis"}}}).
		On("down.pdf", testutil.FakeResponse{Err: &llm.ExtractionError{Provider: "fake", Op: "send", Err: errors.New("connection refused")}})
	conn := dial(t, fake)

	tests := []struct {
		name string
		req  *structpb.Struct
		code codes.Code
		msg  string
	}{
		{"no files", &structpb.Struct{}, codes.InvalidArgument, "files is required"},
		{"bad base64", request(structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"name": structpb.NewStringValue("x.pdf"),
			"data": structpb.NewStringValue("!!not base64!!"),
		}})), codes.InvalidArgument, "base64"},
		{"no pdf", request(fileValue("notes.txt", "text/plain", []byte("x"))), codes.InvalidArgument, "please upload at least one valid PDF file"},
		{"empty pdf", request(fileValue("empty.pdf", "application/pdf", nil)), codes.InvalidArgument, "empty.pdf"},
		{"validation", request(fileValue("ok.pdf", "application/pdf", []byte("x")), fileValue("invalid.pdf", "application/pdf", []byte("x"))), codes.FailedPrecondition, "invalid.pdf"},
		{"provider down", request(fileValue("down.pdf", "application/pdf", []byte("x"))), codes.Unavailable, "down.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := invoke(t, conn, tt.req)
			st, ok := status.FromError(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, st.Code())
			assert.Contains(t, st.Message(), tt.msg)
		})
	}
}

func TestHealth(t *testing.T) {
	conn := dial(t, testutil.NewFakeExtractor())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestStatusFromError(t *testing.T) {
	assert.NoError(t, StatusFromError(nil))

	already := status.Error(codes.NotFound, "gone")
	assert.Equal(t, already, StatusFromError(already))

	st, _ := status.FromError(StatusFromError(pipeline.ErrNoFiles))
	assert.Equal(t, codes.InvalidArgument, st.Code())

	st, _ = status.FromError(StatusFromError(errors.New("boom")))
	assert.Equal(t, codes.Internal, st.Code())

	st, _ = status.FromError(StatusFromError(context.DeadlineExceeded))
	assert.Equal(t, codes.DeadlineExceeded, st.Code())
}
