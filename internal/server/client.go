package server

import (
	"context"
	"fmt"
	"strconv"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/sheetload/internal/entity"
)

// MaxMessageSize bounds uploaded and exported workbooks.
const MaxMessageSize = 64 << 20

// Client calls the Uploads service.
type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Dial opens a plaintext connection to addr.
func Dial(addr string) (*grpc.ClientConn, error) {
	return grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(MaxMessageSize),
			grpc.MaxCallSendMsgSize(MaxMessageSize),
		),
	)
}

func (c *Client) Upload(ctx context.Context, operator, jobType, fileName string, data []byte, parallel bool) (string, error) {
	ctx = metadata.AppendToOutgoingContext(ctx,
		MDOperator, operator,
		MDJobType, jobType,
		MDFileName, fileName,
		MDParallel, strconv.FormatBool(parallel),
	)
	out := new(wrapperspb.StringValue)
	if err := c.conn.Invoke(ctx, methodUpload, wrapperspb.Bytes(data), out); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

func (c *Client) GetTask(ctx context.Context, taskID string) (*entity.Progress, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, methodGetTask, wrapperspb.String(taskID), out); err != nil {
		return nil, err
	}
	return structToProgress(out)
}

// ExportFailures returns the failure workbook and its suggested file name.
func (c *Client) ExportFailures(ctx context.Context, jobType, taskID string) ([]byte, string, error) {
	ctx = metadata.AppendToOutgoingContext(ctx, MDJobType, jobType)
	var header metadata.MD
	out := new(wrapperspb.BytesValue)
	if err := c.conn.Invoke(ctx, methodExportFailures, wrapperspb.String(taskID), out, grpc.Header(&header)); err != nil {
		return nil, "", err
	}
	name := mdValue(header, MDFileName)
	if name == "" {
		name = fmt.Sprintf("%s_failures.xlsx", jobType)
	}
	return out.GetValue(), name, nil
}
