package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/sheetload/internal/async"
	"github.com/joseph-ayodele/sheetload/internal/cache"
	"github.com/joseph-ayodele/sheetload/internal/common"
	"github.com/joseph-ayodele/sheetload/internal/entity"
	"github.com/joseph-ayodele/sheetload/internal/sheet"
)

type item struct {
	entity.Row
	Key  string `json:"key"`
	Name string `json:"name"`
}

func (i *item) Validate() error {
	if i.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

var itemColumns = sheet.Columns{
	{Field: "key", Header: "Key"},
	{Field: "name", Header: "Name"},
}

// staticDecoder hands out preset rows regardless of the file contents.
type staticDecoder struct {
	rows []*item
	err  error
}

func (d staticDecoder) Decode(io.Reader, sheet.Columns) ([]*item, error) {
	return d.rows, d.err
}

type harness struct {
	cache *cache.Redis
	mr    *miniredis.Miniredis
	pool  *async.Pool
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	c := cache.NewRedis(common.RedisConfig{Addr: mr.Addr(), DialTimeout: time.Second}, nil)
	pool := async.NewPool(nil, async.WithCoreWorkers(4), async.WithMaxWorkers(8), async.WithQueueSize(64))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		pool.Shutdown(ctx)
		_ = c.Close()
	})
	return &harness{cache: c, mr: mr, pool: pool}
}

func (h *harness) service(t *testing.T, spec Spec[*item]) *Service[*item] {
	t.Helper()
	if spec.Name == "" {
		spec.Name = "items"
	}
	if spec.Columns == nil {
		spec.Columns = itemColumns
	}
	if spec.ChunkSize == 0 {
		spec.ChunkSize = 100
	}
	if spec.New == nil {
		spec.New = func() *item { return &item{} }
	}
	if spec.Handle == nil {
		spec.Handle = succeedAll
	}
	svc, err := NewService(spec, h.cache, h.pool, nil)
	require.NoError(t, err)
	return svc
}

func succeedAll(_ context.Context, chunk []*item, _ *JobContext[*item]) (int, error) {
	return len(chunk), nil
}

func makeItems(n int) []*item {
	out := make([]*item, n)
	for i := range out {
		out[i] = &item{Key: fmt.Sprintf("k%04d", i), Name: fmt.Sprintf("row %d", i)}
	}
	return out
}

func keysOf(rows []*item) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Key
	}
	return out
}

func xlsxFile() *File {
	return FileFromBytes("upload.xlsx", []byte("ignored"))
}
