package service

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// DefaultPageSize 所有列表页固定每页 10 条
const DefaultPageSize = 10

// MaxListPageSize 关系链 JSON 列表单页上限
const MaxListPageSize = 100

// Page 一页结果；页码越界时已被钳制到最近的有效页
type Page[T any] struct {
	Items    []T
	Number   int
	NumPages int
	Total    int64
	Size     int
}

// ParsePage 解析 ?page=，缺省或非数字时为 1；
// 超出 int 范围的数字交给 NewPage 钳制到首页或末页
func ParsePage(raw string) int {
	n, err := strconv.Atoi(raw)
	if errors.Is(err, strconv.ErrRange) {
		if strings.HasPrefix(raw, "-") {
			return 1
		}
		return math.MaxInt
	}
	if err != nil {
		return 1
	}
	return n
}

// ListWindow 规整关系链列表的分页参数：页码至少为 1，
// 每页数量缺省为 DefaultPageSize，且不超过 MaxListPageSize
func ListWindow(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxListPageSize {
		pageSize = MaxListPageSize
	}
	return page, pageSize
}

// NewPage 根据总数钳制页码；空集合也有一页（空页）
func NewPage[T any](total int64, requested, size int) Page[T] {
	if size <= 0 {
		size = DefaultPageSize
	}
	numPages := int((total + int64(size) - 1) / int64(size))
	if numPages < 1 {
		numPages = 1
	}
	number := requested
	if number < 1 {
		number = 1
	}
	if number > numPages {
		number = numPages
	}
	return Page[T]{Number: number, NumPages: numPages, Total: total, Size: size, Items: []T{}}
}

func (p Page[T]) Offset() int     { return (p.Number - 1) * p.Size }
func (p Page[T]) HasPrev() bool   { return p.Number > 1 }
func (p Page[T]) HasNext() bool   { return p.Number < p.NumPages }
func (p Page[T]) PrevNumber() int { return p.Number - 1 }
func (p Page[T]) NextNumber() int { return p.Number + 1 }

// Pages 全部页码，供模板渲染分页条
func (p Page[T]) Pages() []int {
	out := make([]int, p.NumPages)
	for i := range out {
		out[i] = i + 1
	}
	return out
}
