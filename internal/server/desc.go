package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Metadata keys carried alongside the well-known-type payloads.
const (
	MDOperator  = "x-operator"
	MDJobType   = "x-job-type"
	MDFileName  = "x-file-name"
	MDParallel  = "x-parallel"
	MDRequestID = "x-request-id"
	MDRows      = "x-rows"
)

const (
	ServiceName = "sheetload.v1.Uploads"

	methodUpload         = "/" + ServiceName + "/Upload"
	methodGetTask        = "/" + ServiceName + "/GetTask"
	methodExportFailures = "/" + ServiceName + "/ExportFailures"
)

// UploadsServer is the server API for the Uploads service.
type UploadsServer interface {
	// Upload takes the workbook bytes and returns the task id.
	Upload(context.Context, *wrapperspb.BytesValue) (*wrapperspb.StringValue, error)
	// GetTask takes a task id and returns its progress.
	GetTask(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	// ExportFailures takes a task id and returns the failure workbook.
	ExportFailures(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error)
}

func RegisterUploadsServer(s grpc.ServiceRegistrar, srv UploadsServer) {
	s.RegisterService(&UploadsServiceDesc, srv)
}

var UploadsServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*UploadsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Upload", Handler: uploadHandler},
		{MethodName: "GetTask", Handler: getTaskHandler},
		{MethodName: "ExportFailures", Handler: exportFailuresHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "sheetload/v1/uploads.proto",
}

func uploadHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(UploadsServer).Upload(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodUpload}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(UploadsServer).Upload(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func getTaskHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(UploadsServer).GetTask(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetTask}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(UploadsServer).GetTask(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func exportFailuresHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(UploadsServer).ExportFailures(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodExportFailures}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(UploadsServer).ExportFailures(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}
