package pipeline

import (
	"errors"
	"path/filepath"
	"strings"
)

var (
	// ErrProcessingInProgress 该文档已经被其他 worker 占用
	ErrProcessingInProgress = errors.New("document is already being processed")
	// ErrUnsupportedFileType 上传的文件类型不在白名单内
	ErrUnsupportedFileType = errors.New("unsupported file type")
	// ErrEmbedding 嵌入服务调用失败
	ErrEmbedding = errors.New("embedding failed")
	// ErrPersistence 分块落库或索引写入失败
	ErrPersistence = errors.New("chunk persistence failed")
)

// supportedExtensions 文件类型白名单，在上传阶段检查，不合法的文件不会进入处理流水线。
var supportedExtensions = map[string]struct{}{
	".pdf":  {},
	".doc":  {},
	".docx": {},
	".txt":  {},
}

// IsSupportedFileType 根据文件扩展名判断是否允许上传。
func IsSupportedFileType(fileName string) bool {
	ext := strings.ToLower(filepath.Ext(fileName))
	_, ok := supportedExtensions[ext]
	return ok
}
