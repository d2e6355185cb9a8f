// Package response 统一响应格式单元测试
package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTest() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	return c, w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestSuccess(t *testing.T) {
	c, w := setupTest()

	Success(c, gin.H{"code": "WELCOME20"})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := parseResponse(t, w)
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, "success", resp.Message)
	assert.NotNil(t, resp.Data)
}

func TestSuccess_WithNilData(t *testing.T) {
	c, w := setupTest()

	Success(c, nil)

	resp := parseResponse(t, w)
	assert.Equal(t, 0, resp.Code)
	assert.Nil(t, resp.Data)
}

func TestSuccessWithMessage(t *testing.T) {
	c, w := setupTest()

	SuccessWithMessage(c, "核销成功", gin.H{"order_id": "ORD-001"})

	resp := parseResponse(t, w)
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, "核销成功", resp.Message)
}

func TestSuccessPage(t *testing.T) {
	c, w := setupTest()

	SuccessPage(c, []string{"A", "B", "C"}, 3, 1, 10)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Code int      `json:"code"`
		Data PageData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, int64(3), resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Page)
	assert.Equal(t, 10, resp.Data.PageSize)
}

func TestSuccessPage_EmptyList(t *testing.T) {
	c, w := setupTest()

	SuccessPage(c, []string{}, 0, 1, 10)

	var resp struct {
		Data PageData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Zero(t, resp.Data.Total)
	assert.NotNil(t, resp.Data.List)
}

func TestError(t *testing.T) {
	c, w := setupTest()

	Error(c, 3000, "优惠码不存在")

	// 业务错误统一返回 200，以 code 区分
	assert.Equal(t, http.StatusOK, w.Code)
	resp := parseResponse(t, w)
	assert.Equal(t, 3000, resp.Code)
	assert.Equal(t, "优惠码不存在", resp.Message)
}

func TestErrorWithData(t *testing.T) {
	c, w := setupTest()

	ErrorWithData(c, 3005, "订单金额未达使用门槛", gin.H{"min_order_amount": 500})

	resp := parseResponse(t, w)
	assert.Equal(t, 3005, resp.Code)
	assert.NotNil(t, resp.Data)
}

func TestHTTPErrors(t *testing.T) {
	cases := []struct {
		name       string
		fn         func(*gin.Context, string)
		wantStatus int
		wantCode   int
	}{
		{"BadRequest", BadRequest, http.StatusBadRequest, 400},
		{"Unauthorized", Unauthorized, http.StatusUnauthorized, 401},
		{"Forbidden", Forbidden, http.StatusForbidden, 403},
		{"NotFound", NotFound, http.StatusNotFound, 404},
		{"InternalError", InternalError, http.StatusInternalServerError, 500},
		{"TooManyRequests", TooManyRequests, http.StatusTooManyRequests, 429},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, w := setupTest()

			tc.fn(c, "测试消息")

			assert.Equal(t, tc.wantStatus, w.Code)
			resp := parseResponse(t, w)
			assert.Equal(t, tc.wantCode, resp.Code)
			assert.Equal(t, "测试消息", resp.Message)
		})
	}
}

func TestHTTPErrors_DefaultMessages(t *testing.T) {
	c, w := setupTest()

	Unauthorized(c, "")

	resp := parseResponse(t, w)
	assert.Equal(t, "unauthorized", resp.Message)
}
