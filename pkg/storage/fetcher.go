package storage

import (
	"context"
	"io"
)

// BucketFetcher 绑定一个具体的桶，按对象名读取文件内容。
// 处理管道依赖它而不是全局 MinIO 客户端，便于在测试里替换。
type BucketFetcher struct {
	Bucket string
}

func NewBucketFetcher(bucket string) *BucketFetcher {
	return &BucketFetcher{Bucket: bucket}
}

// Fetch 返回对象的读取流，调用方负责关闭。
func (f *BucketFetcher) Fetch(ctx context.Context, objectName string) (io.ReadCloser, error) {
	return GetObject(ctx, f.Bucket, objectName)
}
