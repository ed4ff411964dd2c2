package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/nadzzz/mathvoice/internal/message"
	"github.com/nadzzz/mathvoice/internal/pipeline"
	"github.com/nadzzz/mathvoice/internal/transport"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "mathvoice.v1.LectureService"

// Full method names, for clients calling conn.Invoke.
const (
	CreateLectureMethod = "/" + ServiceName + "/CreateLecture"
	ListVoicesMethod    = "/" + ServiceName + "/ListVoices"
)

// ListVoicesRequest is the (empty) request of ListVoices.
type ListVoicesRequest struct{}

// LectureServer is the server API of mathvoice.v1.LectureService.
type LectureServer interface {
	CreateLecture(ctx context.Context, req *message.LectureRequest) (*message.LectureResponse, error)
	ListVoices(ctx context.Context, req *ListVoicesRequest) (*message.VoiceList, error)
}

var lectureServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LectureServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateLecture", Handler: createLectureHandler},
		{MethodName: "ListVoices", Handler: listVoicesHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func createLectureHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(message.LectureRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LectureServer).CreateLecture(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CreateLectureMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LectureServer).CreateLecture(ctx, req.(*message.LectureRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func listVoicesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListVoicesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LectureServer).ListVoices(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ListVoicesMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LectureServer).ListVoices(ctx, req.(*ListVoicesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// lectureServer adapts a transport.Service to LectureServer.
type lectureServer struct {
	svc transport.Service
}

func (s *lectureServer) CreateLecture(ctx context.Context, req *message.LectureRequest) (*message.LectureResponse, error) {
	if req.Source == "" {
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			req.Source = p.Addr.String()
		}
	}
	resp, err := s.svc.CreateLecture(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}
	return resp, nil
}

func (s *lectureServer) ListVoices(_ context.Context, _ *ListVoicesRequest) (*message.VoiceList, error) {
	list := s.svc.Voices()
	return &list, nil
}

// toStatus maps a pipeline error to a gRPC status.
func toStatus(err error) error {
	var pe *pipeline.Error
	if !errors.As(err, &pe) {
		return status.Error(codes.Internal, "internal error")
	}
	var code codes.Code
	switch pe.Kind {
	case pipeline.KindInvalidInput, pipeline.KindUnknownVoice:
		code = codes.InvalidArgument
	case pipeline.KindEmptyContent:
		code = codes.FailedPrecondition
	case pipeline.KindOCRService, pipeline.KindGenerationService, pipeline.KindSynthesisService:
		code = codes.Unavailable
		if pe.Timeout() {
			code = codes.DeadlineExceeded
		}
	default:
		code = codes.Internal
	}
	if pe.Status != 0 {
		return status.Errorf(code, "%s: %s (upstream status %d)", pe.Kind, pe.Message, pe.Status)
	}
	return status.Errorf(code, "%s: %s", pe.Kind, pe.Message)
}
