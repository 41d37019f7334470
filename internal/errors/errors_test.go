package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
)

// ErrorsTestSuite 错误包测试套件
type ErrorsTestSuite struct {
	suite.Suite
}

// 测试创建新错误
func (suite *ErrorsTestSuite) TestNew() {
	// 测试基本错误创建
	err := New(ErrInvalidParam)
	suite.NotNil(err)
	suite.Equal(ErrInvalidParam, err.Code)
	suite.Equal("无效的参数", err.Message)
	suite.Empty(err.Details)

	// 测试带详情的错误
	err = New(ErrGameNotFound, "游戏id不存在")
	suite.NotNil(err)
	suite.Equal(ErrGameNotFound, err.Code)
	suite.Equal("游戏不存在", err.Message)
	suite.Equal("游戏id不存在", err.Details)

	// 测试多个详情
	err = New(ErrDatabaseConnect, "连接失败", "主机: localhost", "端口: 3306")
	suite.Equal("连接失败; 主机: localhost; 端口: 3306", err.Details)
}

// 测试格式化错误创建
func (suite *ErrorsTestSuite) TestNewf() {
	err := Newf(ErrVersionConflict, "期望版本 %d，实际版本 %d", 3, 5)
	suite.NotNil(err)
	suite.Equal(ErrVersionConflict, err.Code)
	suite.Equal("期望版本 3，实际版本 5", err.Details)
}

// 测试错误包装
func (suite *ErrorsTestSuite) TestWrap() {
	// 包装标准错误
	originalErr := errors.New("原始错误")
	wrappedErr := Wrap(originalErr, ErrDatabaseQuery)
	suite.NotNil(wrappedErr)
	suite.Equal(ErrDatabaseQuery, wrappedErr.Code)
	suite.Equal("原始错误", wrappedErr.Details)
	suite.Equal(originalErr, wrappedErr.Cause)

	// 包装nil错误
	nilErr := Wrap(nil, ErrUnknown)
	suite.Nil(nilErr)

	// 包装已有的AppError
	appErr := New(ErrGameNotFound, "游戏不存在")
	wrappedAppErr := Wrap(appErr, ErrInvalidParam, "额外信息")
	suite.Equal(ErrGameNotFound, wrappedAppErr.Code) // 保留原始错误码
	suite.Contains(wrappedAppErr.Details, "额外信息")
}

// 测试错误码判断
func (suite *ErrorsTestSuite) TestIs() {
	err := New(ErrVersionConflict)
	suite.True(Is(err, ErrVersionConflict))
	suite.False(Is(err, ErrNotFound))
	suite.False(Is(nil, ErrVersionConflict))

	stdErr := errors.New("标准错误")
	suite.False(Is(stdErr, ErrVersionConflict))
}

// 测试HTTP状态码映射
func (suite *ErrorsTestSuite) TestHTTPStatus() {
	suite.Equal(400, New(ErrInvalidParam).HTTPStatus())
	suite.Equal(404, New(ErrGameNotFound).HTTPStatus())
	suite.Equal(404, New(ErrNotFound).HTTPStatus())
	suite.Equal(409, New(ErrVersionConflict).HTTPStatus())
	suite.Equal(401, New(ErrTokenInvalid).HTTPStatus())
	suite.Equal(503, New(ErrQueuePop).HTTPStatus())
	suite.Equal(503, New(ErrDatabaseConnect).HTTPStatus())
	suite.Equal(500, New(ErrUnknown).HTTPStatus())
}

// 测试可重试判断
func (suite *ErrorsTestSuite) TestIsRetryable() {
	suite.True(IsRetryable(New(ErrQueuePop)))
	suite.True(IsRetryable(New(ErrDatabaseConnect)))
	suite.True(IsRetryable(New(ErrTimeout)))
	suite.False(IsRetryable(New(ErrInvalidParam)))
	suite.False(IsRetryable(New(ErrGameNotFound)))
	suite.False(IsRetryable(New(ErrVersionConflict)))
	suite.False(IsRetryable(nil))
}

// 测试错误码获取
func (suite *ErrorsTestSuite) TestGetCode() {
	suite.Equal(ErrorCode(0), GetCode(nil))
	suite.Equal(ErrGameNotFound, GetCode(New(ErrGameNotFound)))
	suite.Equal(ErrUnknown, GetCode(errors.New("未知")))
}

// TestErrorsTestSuite 运行测试套件
func TestErrorsTestSuite(t *testing.T) {
	suite.Run(t, new(ErrorsTestSuite))
}
