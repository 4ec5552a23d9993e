package visualiser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/eeg.report/internal/monitoring"
	"github.com/banshee-data/eeg.report/internal/playback"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "eegreport.v1.Playback"

// PlaybackServer is the server API for the Playback service. Frames travel
// as google.protobuf.Struct using the JSON field names of playback.Frame.
type PlaybackServer interface {
	Status(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	TogglePlay(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Reset(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	PrevSubject(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	NextSubject(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	StreamFrames(*emptypb.Empty, grpc.ServerStreamingServer[structpb.Struct]) error
}

// Ensure Server implements the gRPC interface.
var _ PlaybackServer = (*Server)(nil)

// Server implements PlaybackServer over a playback controller and a frame
// publisher.
type Server struct {
	controller playback.Controller
	publisher  *Publisher
}

// NewServer creates a new gRPC service implementation.
func NewServer(controller playback.Controller, publisher *Publisher) *Server {
	return &Server{controller: controller, publisher: publisher}
}

// Status returns the current frame without changing playback.
func (s *Server) Status(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	f, err := s.controller.Snapshot(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return frameStruct(f)
}

// TogglePlay flips between playing and paused.
func (s *Server) TogglePlay(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.do(ctx, playback.CmdToggle)
}

// Reset rewinds the current subject.
func (s *Server) Reset(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.do(ctx, playback.CmdReset)
}

// PrevSubject moves to the previous subject, wrapping around.
func (s *Server) PrevSubject(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.do(ctx, playback.CmdPrev)
}

// NextSubject moves to the next subject, wrapping around.
func (s *Server) NextSubject(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.do(ctx, playback.CmdNext)
}

func (s *Server) do(ctx context.Context, cmd playback.Command) (*structpb.Struct, error) {
	f, err := s.controller.Do(ctx, cmd)
	if err != nil {
		monitoring.Logf("[gRPC] %s failed: %v", cmd, err)
		return nil, toStatus(err)
	}
	return frameStruct(f)
}

// StreamFrames sends every published frame until the client goes away or the
// publisher stops.
func (s *Server) StreamFrames(_ *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	sub, err := s.publisher.Subscribe()
	if err != nil {
		if errors.Is(err, ErrTooManyClients) {
			return status.Error(codes.ResourceExhausted, err.Error())
		}
		return status.Error(codes.Unavailable, err.Error())
	}
	defer s.publisher.Unsubscribe(sub.ID)
	monitoring.Logf("[gRPC] StreamFrames started: client=%s", sub.ID)

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("[gRPC] StreamFrames cancelled: client=%s", sub.ID)
			return ctx.Err()
		case f, ok := <-sub.C:
			if !ok {
				return status.Error(codes.Unavailable, "publisher stopped")
			}
			msg, err := frameStruct(f)
			if err != nil {
				return err
			}
			if err := stream.Send(msg); err != nil {
				monitoring.Logf("[gRPC] send error: %v", err)
				return err
			}
		}
	}
}

// toStatus maps playback errors onto gRPC status codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, playback.ErrNotReady):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, playback.ErrStopped):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, playback.ErrUnknownCommand):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// frameStruct converts f to its wire form.
func frameStruct(f playback.Frame) (*structpb.Struct, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode frame: %v", err)
	}
	out := &structpb.Struct{}
	if err := out.UnmarshalJSON(b); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode frame: %v", err)
	}
	return out, nil
}

// FrameFromStruct decodes a frame received over the wire.
func FrameFromStruct(s *structpb.Struct) (playback.Frame, error) {
	var f playback.Frame
	b, err := s.MarshalJSON()
	if err != nil {
		return f, fmt.Errorf("failed to read frame: %w", err)
	}
	if err := json.Unmarshal(b, &f); err != nil {
		return f, fmt.Errorf("failed to decode frame: %w", err)
	}
	return f, nil
}

// RegisterService registers the Playback service with grpcServer.
func RegisterService(grpcServer grpc.ServiceRegistrar, server PlaybackServer) {
	grpcServer.RegisterService(&playbackServiceDesc, server)
}

// Serve runs a gRPC server for s on lis until ctx is cancelled.
func Serve(ctx context.Context, lis net.Listener, s *Server) error {
	grpcServer := grpc.NewServer()
	RegisterService(grpcServer, s)

	errCh := make(chan error, 1)
	go func() {
		monitoring.Logf("[gRPC] listening on %s", lis.Addr())
		errCh <- grpcServer.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		grpcServer.GracefulStop()
		<-errCh
		monitoring.Logf("[gRPC] server stopped")
		return nil
	case err := <-errCh:
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("grpc serve: %w", err)
	}
}

func unaryHandler(method string, call func(PlaybackServer, context.Context, *emptypb.Empty) (*structpb.Struct, error)) grpc.MethodHandler {
	fullMethod := "/" + ServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(emptypb.Empty)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(PlaybackServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(PlaybackServer), ctx, req.(*emptypb.Empty))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func streamFramesHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(PlaybackServer).StreamFrames(in, &grpc.GenericServerStream[emptypb.Empty, structpb.Struct]{ServerStream: stream})
}

var playbackServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PlaybackServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Status", Handler: unaryHandler("Status", PlaybackServer.Status)},
		{MethodName: "TogglePlay", Handler: unaryHandler("TogglePlay", PlaybackServer.TogglePlay)},
		{MethodName: "Reset", Handler: unaryHandler("Reset", PlaybackServer.Reset)},
		{MethodName: "PrevSubject", Handler: unaryHandler("PrevSubject", PlaybackServer.PrevSubject)},
		{MethodName: "NextSubject", Handler: unaryHandler("NextSubject", PlaybackServer.NextSubject)},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamFrames",
			Handler:       streamFramesHandler,
			ServerStreams: true,
		},
	},
}
