package api

import (
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"intakegate/app"
	"intakegate/domain/core"
	"intakegate/domain/intake"
	"intakegate/internal"
	"intakegate/internal/errors"
	"intakegate/ports"
)

// Intake is the part of the intake service the handlers call
type Intake interface {
	Propose(ctx context.Context, in app.Inputs) (*app.ProposalSet, error)
	Run(ctx context.Context, in app.Inputs, confirmations []intake.Confirmation) (*app.RunResult, error)
	GetRun(ctx context.Context, id core.RunID) (*ports.StoredRun, error)
	ListRuns(ctx context.Context, filter ports.RunFilter) ([]ports.RunSummary, error)
}

// RunHandler serves the proposal and run endpoints
type RunHandler struct {
	intake         Intake
	maxUploadBytes int64
	logger         *internal.Logger
}

// NewRunHandler creates a new run handler
func NewRunHandler(svc Intake, maxUploadBytes int64, logger *internal.Logger) *RunHandler {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &RunHandler{intake: svc, maxUploadBytes: maxUploadBytes, logger: logger}
}

// Register mounts the v1 routes on r
func (h *RunHandler) Register(r gin.IRouter) {
	v1 := r.Group("/api/v1")
	v1.POST("/proposals", h.CreateProposals)
	v1.POST("/runs", h.CreateRun)
	v1.GET("/runs", h.ListRuns)
	v1.GET("/runs/:id", h.GetRun)
}

// CreateProposals loads both uploads and returns candidate mappings
func (h *RunHandler) CreateProposals(c *gin.Context) {
	in, cleanup, err := h.receive(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer cleanup()

	set, err := h.intake.Propose(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, set)
}

// CreateRun executes a run. A halted run answers 422 with its report.
func (h *RunHandler) CreateRun(c *gin.Context) {
	in, cleanup, err := h.receive(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer cleanup()

	var confirmations []intake.Confirmation
	if raw := c.PostForm("confirmations"); strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &confirmations); err != nil {
			h.writeError(c, errors.InvalidInput(fmt.Sprintf("confirmations must be a JSON array: %v", err)))
			return
		}
	}

	res, err := h.intake.Run(c.Request.Context(), in, confirmations)
	if err != nil {
		h.writeError(c, err)
		return
	}
	status := http.StatusOK
	if res.Report.Halted() {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, res)
}

// GetRun returns a stored run
func (h *RunHandler) GetRun(c *gin.Context) {
	id, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		h.writeError(c, errors.InvalidInput(err.Error()))
		return
	}
	run, err := h.intake.GetRun(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// ListRuns returns recent run summaries
func (h *RunHandler) ListRuns(c *gin.Context) {
	filter := ports.RunFilter{}
	switch v := intake.Verdict(c.Query("verdict")); v {
	case "":
	case intake.VerdictProceed, intake.VerdictHalt:
		filter.Verdict = v
	default:
		h.writeError(c, errors.InvalidInput(fmt.Sprintf("verdict must be proceed or halt, got %q", v)))
		return
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.writeError(c, errors.InvalidInput(fmt.Sprintf("%s must be a non-negative integer", name)))
			return
		}
		*dst = n
	}

	runs, err := h.intake.ListRuns(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// receive stores the two uploads in a private temp dir, keeping their extensions so the
// loader can pick the format
func (h *RunHandler) receive(c *gin.Context) (app.Inputs, func(), error) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}
	dir, err := os.MkdirTemp("", "intake-upload-*")
	if err != nil {
		return app.Inputs{}, nil, errors.Wrap(err, "failed to create upload dir")
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	var in app.Inputs
	for _, role := range intake.Roles() {
		fh, err := c.FormFile(string(role))
		if err != nil {
			cleanup()
			return app.Inputs{}, nil, errors.InvalidInput(fmt.Sprintf("multipart file %q is required: %v", role, err))
		}
		src, err := save(c, fh, dir, role)
		if err != nil {
			cleanup()
			return app.Inputs{}, nil, err
		}
		switch role {
		case intake.RoleIncident:
			in.Incident = src
		case intake.RoleConsequence:
			in.Consequence = src
		}
	}
	return in, cleanup, nil
}

func save(c *gin.Context, fh *multipart.FileHeader, dir string, role intake.FileRole) (ports.FileSource, error) {
	name := filepath.Base(fh.Filename)
	if name == "." || name == string(filepath.Separator) {
		name = string(role)
	}
	path := filepath.Join(dir, string(role)+strings.ToLower(filepath.Ext(name)))
	if err := c.SaveUploadedFile(fh, path); err != nil {
		return ports.FileSource{}, errors.Wrapf(err, "failed to store %s upload", role)
	}
	return ports.FileSource{Role: role, Path: path, Name: name}, nil
}

// statusClientClosedRequest is the nginx convention for a request the caller abandoned
const statusClientClosedRequest = 499

type errorBody struct {
	Error   string                `json:"error"`
	Code    string                `json:"code,omitempty"`
	Failure *intake.FailureRecord `json:"failure,omitempty"`
}

// writeError maps halts and AppError codes to HTTP statuses
func (h *RunHandler) writeError(c *gin.Context, err error) {
	if halt, ok := intake.AsHalt(err); ok {
		failure := halt.Failure
		c.JSON(http.StatusUnprocessableEntity, errorBody{Error: failure.Message, Code: string(failure.Reason), Failure: &failure})
		return
	}

	code := errors.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case errors.CodeInvalidInput:
		status = http.StatusBadRequest
	case errors.CodeNotFound:
		status = http.StatusNotFound
	case errors.CodeConfigInvalid:
		status = http.StatusServiceUnavailable
	}
	if c.Request.Context().Err() != nil {
		status = statusClientClosedRequest
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, errorBody{Error: err.Error(), Code: code})
}
