package logctx

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestFromCtx(t *testing.T) {
	base := zap.NewNop().Sugar()
	reqLogger := zap.NewNop().Sugar().With("k", "v")

	assert.Same(t, base, FromCtx(context.Background(), base))
	assert.Same(t, reqLogger, FromCtx(WithLogger(context.Background(), reqLogger), base))
	assert.NotSame(t, base, FromCtx(WithTraceID(context.Background(), "t-1"), base))
}

func TestFromGin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	base := zap.NewNop().Sugar()
	reqLogger := zap.NewNop().Sugar().With("k", "v")

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)
	assert.Same(t, base, FromGin(c, base))

	c.Set(LoggerKey, reqLogger)
	assert.Same(t, reqLogger, FromGin(c, base))
	assert.Same(t, base, FromGin(nil, base))
}
