package server

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/npuflow/decode"
	"github.com/kbukum/npuflow/engine"
	apperrors "github.com/kbukum/npuflow/errors"
	"github.com/kbukum/npuflow/harness"
	"github.com/kbukum/npuflow/server/middleware"
)

// Runner is the harness surface the API serves. *harness.Submitter
// implements it.
type Runner interface {
	RunBatch(ctx context.Context, inputs [][]byte) ([]decode.Result, error)
	RunFiles(ctx context.Context, paths []string) ([]decode.Result, error)
	Metadata() harness.Metadata
	EngineInfo() (engine.Info, error)
}

// BatchRequest carries payloads (base64 in JSON) or file paths on the
// server host. Exactly one of them is set.
type BatchRequest struct {
	Inputs [][]byte `json:"inputs"`
	Paths  []string `json:"paths"`
}

// BatchResponse is the result of one batch, results in input order.
type BatchResponse struct {
	BatchID    string          `json:"batch_id"`
	Count      int             `json:"count"`
	DurationMS int64           `json:"duration_ms"`
	Results    []decode.Result `json:"results"`
}

// MetadataResponse describes the system under test and the loaded model.
type MetadataResponse struct {
	System harness.Metadata `json:"system"`
	Engine engine.Info      `json:"engine"`
}

// BatchAPI serves the harness over HTTP.
type BatchAPI struct {
	runner Runner
}

// NewBatchAPI creates the API for r.
func NewBatchAPI(r Runner) *BatchAPI {
	return &BatchAPI{runner: r}
}

// Register mounts the API under /v1.
func (a *BatchAPI) Register(r gin.IRouter) {
	v1 := r.Group("/v1")
	v1.GET("/metadata", a.metadata)
	v1.POST("/batches", a.runBatch)
}

func (a *BatchAPI) metadata(c *gin.Context) {
	info, err := a.runner.EngineInfo()
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, MetadataResponse{System: a.runner.Metadata(), Engine: info})
}

func (a *BatchAPI) runBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, apperrors.InvalidInput("body", err.Error()))
		return
	}
	if (len(req.Inputs) == 0) == (len(req.Paths) == 0) {
		RespondWithError(c, apperrors.InvalidInput("body", "exactly one of inputs or paths is required"))
		return
	}

	ctx := c.Request.Context()
	start := time.Now()
	var (
		results []decode.Result
		err     error
	)
	if len(req.Inputs) > 0 {
		results, err = a.runner.RunBatch(ctx, req.Inputs)
	} else {
		results, err = a.runner.RunFiles(ctx, req.Paths)
	}
	if err != nil {
		RespondWithError(c, err)
		return
	}

	RespondOK(c, BatchResponse{
		BatchID:    middleware.GetRequestID(ctx),
		Count:      len(results),
		DurationMS: time.Since(start).Milliseconds(),
		Results:    results,
	})
}
