// Package pipeline 定义了文档处理的核心流程。
package pipeline

import "strings"

// 默认切块参数。单位是字符（rune），与嵌入模型的输入长度预算匹配。
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// SplitText 将长文本按指定大小和重叠进行切分。
// 每个窗口去除首尾空白后输出，去除后为空的窗口被丢弃，
// 因此返回的分块数可能少于窗口数；分块序号只分配给存活的分块。
// 纯函数，无副作用，相同输入的结果完全一致。
func SplitText(text string, chunkSize int, overlap int) []string {
	// 非正的块大小会让游标无法前进，回退到默认值
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkSize <= overlap {
		// Fallback to simple split if overlap is invalid
		return simpleSplit(text, chunkSize)
	}

	var chunks []string
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := chunkSize - overlap
	for i := 0; i < len(runes); i += step {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		if chunk := strings.TrimSpace(string(runes[i:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		// 窗口末端到达文本末尾即终止，避免再生成一个重复的尾部窗口
		if end == len(runes) {
			break
		}
	}
	return chunks
}

func simpleSplit(text string, chunkSize int) []string {
	var chunks []string
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	for i := 0; i < len(runes); i += chunkSize {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		if chunk := strings.TrimSpace(string(runes[i:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}
