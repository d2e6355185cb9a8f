// Package utils 通用工具函数单元测试
package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// ==================== RandomCode 测试 ====================

func TestRandomCode(t *testing.T) {
	lengths := []int{1, 6, 8, 16}

	for _, length := range lengths {
		code := RandomCode(length)
		assert.Len(t, code, length)

		// 只包含符号表中的字符
		for _, ch := range code {
			assert.True(t, strings.ContainsRune(CodeCharset, ch))
		}
	}
}

func TestRandomCode_ExcludesAmbiguousChars(t *testing.T) {
	// 符号表排除了易混淆字符
	assert.NotContains(t, CodeCharset, "0")
	assert.NotContains(t, CodeCharset, "O")
	assert.NotContains(t, CodeCharset, "I")
	assert.NotContains(t, CodeCharset, "1")
}

func TestRandomCode_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := RandomCode(8)
		assert.False(t, seen[code], "生成了重复的优惠码: %s", code)
		seen[code] = true
	}
}

func TestRandomCode_ZeroLength(t *testing.T) {
	assert.Equal(t, "", RandomCode(0))
}

// ==================== RandomLetters 测试 ====================

func TestRandomLetters(t *testing.T) {
	letters := RandomLetters(6)
	assert.Len(t, letters, 6)

	for _, ch := range letters {
		assert.True(t, ch >= 'A' && ch <= 'Z')
		// 同样排除易混淆字母
		assert.NotContains(t, "OI", string(ch))
	}
}

// ==================== NormalizeCode 测试 ====================

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase", "summer25", "SUMMER25"},
		{"mixed case", "Ref-A7k2", "REF-A7K2"},
		{"leading whitespace", "  WELCOME", "WELCOME"},
		{"trailing whitespace", "WELCOME  ", "WELCOME"},
		{"both whitespace and case", "  pr-xk2m-a7q9t3  ", "PR-XK2M-A7Q9T3"},
		{"already normalized", "PROMO99", "PROMO99"},
		{"empty string", "", ""},
		{"whitespace only", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeCode(tt.input))
		})
	}
}

// ==================== ValidateEmail 测试 ====================

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"user@example.com", true},
		{"student.zhang@secacademy.cn", true},
		{"a+tag@sub.domain.org", true},
		{"invalid", false},
		{"@example.com", false},
		{"user@", false},
		{"user@domain", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidateEmail(tt.email))
		})
	}
}

// ==================== 指针辅助函数测试 ====================

func TestStringPtr(t *testing.T) {
	p := StringPtr("hello")
	assert.NotNil(t, p)
	assert.Equal(t, "hello", *p)
}

func TestIntPtr(t *testing.T) {
	p := IntPtr(42)
	assert.NotNil(t, p)
	assert.Equal(t, 42, *p)
}

func TestFloat64Ptr(t *testing.T) {
	p := Float64Ptr(19.99)
	assert.NotNil(t, p)
	assert.Equal(t, 19.99, *p)
}

func TestTimePtr(t *testing.T) {
	now := time.Now()
	p := TimePtr(now)
	assert.NotNil(t, p)
	assert.Equal(t, now, *p)
}

func TestSafeString(t *testing.T) {
	assert.Equal(t, "", SafeString(nil))
	assert.Equal(t, "value", SafeString(StringPtr("value")))
}

func TestSafeInt(t *testing.T) {
	assert.Equal(t, 0, SafeInt(nil))
	assert.Equal(t, 7, SafeInt(IntPtr(7)))
}

func TestSafeFloat64(t *testing.T) {
	assert.Equal(t, float64(0), SafeFloat64(nil))
	assert.Equal(t, 3.14, SafeFloat64(Float64Ptr(3.14)))
}

// ==================== Min 测试 ====================

func TestMin(t *testing.T) {
	assert.Equal(t, 1, Min(1, 2))
	assert.Equal(t, 1, Min(2, 1))
	assert.Equal(t, int64(100), Min(int64(100), int64(200)))
	assert.Equal(t, 19.99, Min(19.99, 50.0))
	assert.Equal(t, -5, Min(-5, 0))
	assert.Equal(t, 3, Min(3, 3))
}

// ==================== Pagination 测试 ====================

func TestPagination_GetOffset(t *testing.T) {
	tests := []struct {
		page     int
		pageSize int
		want     int
	}{
		{1, 10, 0},
		{2, 10, 10},
		{3, 20, 40},
		{5, 15, 60},
	}

	for _, tt := range tests {
		p := &Pagination{Page: tt.page, PageSize: tt.pageSize}
		assert.Equal(t, tt.want, p.GetOffset())
	}
}

func TestPagination_GetLimit(t *testing.T) {
	p := &Pagination{Page: 1, PageSize: 25}
	assert.Equal(t, 25, p.GetLimit())
}

func TestPagination_Normalize(t *testing.T) {
	tests := []struct {
		name         string
		page         int
		pageSize     int
		wantPage     int
		wantPageSize int
	}{
		{"valid params unchanged", 2, 20, 2, 20},
		{"zero page defaults to 1", 0, 10, 1, 10},
		{"negative page defaults to 1", -3, 10, 1, 10},
		{"zero pageSize defaults to 10", 1, 0, 1, 10},
		{"negative pageSize defaults to 10", 1, -1, 1, 10},
		{"pageSize over 100 capped", 1, 500, 1, 100},
		{"pageSize exactly 100 kept", 1, 100, 1, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Pagination{Page: tt.page, PageSize: tt.pageSize}
			p.Normalize()
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantPageSize, p.PageSize)
		})
	}
}

// ==================== 性能测试 ====================

func BenchmarkRandomCode(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = RandomCode(8)
	}
}

func BenchmarkNormalizeCode(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = NormalizeCode("  ref-a7k2m9qx  ")
	}
}
