// Package qrcode 二维码生成功能单元测试
package qrcode

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==================== NewGenerator 测试 ====================

func TestNewGenerator_Default(t *testing.T) {
	gen := NewGenerator()
	assert.NotNil(t, gen)
	assert.Equal(t, 256, gen.size)
	assert.Equal(t, Medium, gen.recoveryLevel)
}

func TestNewGenerator_MultipleOptions(t *testing.T) {
	gen := NewGenerator(
		WithSize(512),
		WithRecoveryLevel(High),
	)
	assert.Equal(t, 512, gen.size)
	assert.Equal(t, High, gen.recoveryLevel)
}

// ==================== Generate 测试 ====================

func TestGenerator_Generate_Success(t *testing.T) {
	gen := NewGenerator()

	tests := []struct {
		name    string
		content string
	}{
		{"Simple text", "REF-A7K2M9QX"},
		{"URL", "https://academy.example.com/r/PARTNER-X9K2"},
		{"Chinese", "你好世界"},
		{"Long text", strings.Repeat("测试", 100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := gen.Generate(tt.content)
			require.NoError(t, err)
			assert.NotNil(t, img)

			bounds := img.Bounds()
			assert.Equal(t, 256, bounds.Dx())
			assert.Equal(t, 256, bounds.Dy())
		})
	}
}

// ==================== GeneratePNG 测试 ====================

func TestGenerator_GeneratePNG_Success(t *testing.T) {
	gen := NewGenerator()
	content := "https://academy.example.com/r/REF-A7K2M9QX"

	data, err := gen.GeneratePNG(content)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	// 验证是有效的PNG
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.NotNil(t, img)
}

// ==================== GenerateBase64 测试 ====================

func TestGenerator_GenerateBase64_Success(t *testing.T) {
	gen := NewGenerator()
	content := "Test content"

	b64, err := gen.GenerateBase64(content)
	require.NoError(t, err)
	assert.NotEmpty(t, b64)

	// 验证是有效的base64
	data, err := base64.StdEncoding.DecodeString(b64)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	// 验证解码后是有效的PNG
	_, err = png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
}

// ==================== GenerateDataURL 测试 ====================

func TestGenerator_GenerateDataURL_Success(t *testing.T) {
	gen := NewGenerator()
	content := "Test content"

	dataURL, err := gen.GenerateDataURL(content)
	require.NoError(t, err)
	assert.NotEmpty(t, dataURL)

	assert.True(t, strings.HasPrefix(dataURL, "data:image/png;base64,"))

	b64 := strings.TrimPrefix(dataURL, "data:image/png;base64,")
	data, err := base64.StdEncoding.DecodeString(b64)
	require.NoError(t, err)

	_, err = png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
}

// ==================== 边界条件测试 ====================

func TestGenerator_EmptyContent(t *testing.T) {
	gen := NewGenerator()

	// 空内容应该返回错误（底层库不支持空内容）
	img, err := gen.Generate("")
	assert.Error(t, err)
	assert.Nil(t, img)
}

// ==================== 一致性测试 ====================

func TestGenerator_ConsistentOutput(t *testing.T) {
	gen := NewGenerator()
	content := "Consistent test"

	// 多次生成相同内容应该产生相同的二维码
	data1, err := gen.GeneratePNG(content)
	require.NoError(t, err)

	data2, err := gen.GeneratePNG(content)
	require.NoError(t, err)

	assert.Equal(t, data1, data2, "相同内容应该生成相同的二维码")
}

func TestGenerator_DifferentContentsDifferentOutput(t *testing.T) {
	gen := NewGenerator()

	data1, err := gen.GeneratePNG("REF-AAAAAA")
	require.NoError(t, err)

	data2, err := gen.GeneratePNG("REF-BBBBBB")
	require.NoError(t, err)

	assert.NotEqual(t, data1, data2, "不同内容应该生成不同的二维码")
}
