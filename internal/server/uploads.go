package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/sheetload/internal/common"
	"github.com/joseph-ayodele/sheetload/internal/entity"
	"github.com/joseph-ayodele/sheetload/internal/upload"
)

type UploadService struct {
	registry *upload.Registry
	tracker  *upload.Tracker
	logger   *slog.Logger
}

var _ UploadsServer = (*UploadService)(nil)

func NewUploadService(registry *upload.Registry, tracker *upload.Tracker, logger *slog.Logger) *UploadService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadService{registry: registry, tracker: tracker, logger: logger}
}

func (s *UploadService) Upload(ctx context.Context, req *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	operator := mdValue(md, MDOperator)
	jobType := mdValue(md, MDJobType)
	fileName := mdValue(md, MDFileName)

	v := common.NewValidator().
		Field(MDOperator, operator, common.Required).
		Field(MDJobType, jobType, common.Required).
		Field(MDFileName, fileName, common.Required)
	if err := common.ValidateAndReturnError(v); err != nil {
		s.logger.Error("upload request rejected", "error", err)
		return nil, err
	}
	if len(req.GetValue()) == 0 {
		return nil, common.InvalidArgumentError("file content is empty")
	}

	runner, err := s.registry.Get(jobType)
	if err != nil {
		return nil, common.ToStatus(err)
	}

	mode := upload.Sequential
	if parallel, _ := strconv.ParseBool(mdValue(md, MDParallel)); parallel {
		mode = upload.Parallel
	}

	ctx = common.WithOperator(ctx, operator)
	taskID, err := runner.Submit(ctx, operator, upload.FileFromBytes(fileName, req.GetValue()), mode)
	if err != nil {
		s.logger.Warn("upload.submit.failed", "job", jobType, "operator", operator, "request_id", common.RequestIDFromContext(ctx), "error", err)
		return nil, common.ToStatus(err)
	}

	s.logger.Info("upload.submit.ok", "job", jobType, "operator", operator, "task_id", taskID, "mode", mode.String())
	return wrapperspb.String(taskID), nil
}

func (s *UploadService) GetTask(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	taskID := strings.TrimSpace(req.GetValue())
	if taskID == "" {
		return nil, common.InvalidArgumentError("task id is required")
	}
	p, err := s.tracker.Read(ctx, taskID)
	if err != nil {
		s.logger.Error("read task failed", "task_id", taskID, "error", err)
		return nil, common.InternalError("read task failed")
	}
	if p == nil {
		return nil, common.NotFoundError("task not found or expired")
	}
	out, err := progressToStruct(p)
	if err != nil {
		return nil, common.InternalErrorf("encode task: %v", err)
	}
	return out, nil
}

func (s *UploadService) ExportFailures(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	taskID := strings.TrimSpace(req.GetValue())
	jobType := mdValue(md, MDJobType)
	if taskID == "" || jobType == "" {
		return nil, common.InvalidArgumentErrorf("task id and %s are required", MDJobType)
	}

	runner, err := s.registry.Get(jobType)
	if err != nil {
		return nil, common.ToStatus(err)
	}

	var buf bytes.Buffer
	n, err := runner.ExportFailures(ctx, taskID, &buf)
	if err != nil {
		s.logger.Error("export.xlsx.failed", "task_id", taskID, "error", err)
		return nil, common.ToStatus(err)
	}
	if n == 0 {
		return nil, common.NotFoundError("no failures stored for task")
	}

	if err := grpc.SetHeader(ctx, metadata.Pairs(MDFileName, runner.FailFileName(), MDRows, strconv.Itoa(n))); err != nil {
		s.logger.Warn("set header failed", "error", err)
	}
	return wrapperspb.Bytes(buf.Bytes()), nil
}

func mdValue(md metadata.MD, key string) string {
	if vals := md.Get(key); len(vals) > 0 {
		return strings.TrimSpace(vals[0])
	}
	return ""
}

// progressToStruct encodes p plus its derived state.
func progressToStruct(p *entity.Progress) (*structpb.Struct, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	m["state"] = string(p.State())
	m["percent"] = p.Percent()
	return structpb.NewStruct(m)
}

// structToProgress is the inverse of progressToStruct.
func structToProgress(s *structpb.Struct) (*entity.Progress, error) {
	b, err := s.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var p entity.Progress
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, status.Errorf(codes.Internal, "decode task: %v", err)
	}
	return &p, nil
}
