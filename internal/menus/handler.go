package menus

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"menuflow-backend/internal/extract"
	"menuflow-backend/internal/jobs"
	"menuflow-backend/internal/shared/server/respond"
)

const maxUploadSize = 10 << 20 // 10MB

// JobQueue is the slice of the job queue the handler depends on.
type JobQueue interface {
	Add(text string) (string, error)
	Get(id string) (jobs.Job, bool)
}

// Handler wires HTTP handlers to the extraction service and job queue.
type Handler struct {
	Svc     *Service
	Queue   JobQueue
	limiter *pollLimiter
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, queue JobQueue) *Handler {
	return &Handler{
		Svc:     svc,
		Queue:   queue,
		limiter: newPollLimiter(pollLimitWindow, nil),
	}
}

// RegisterRoutes attaches menu extraction routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/menus/extract", h.extract)
	rg.POST("/extractions", h.submit)
	rg.GET("/extractions/:id", h.status)
}

// extract runs the synchronous pipeline on an uploaded document. The body
// is either multipart with a "file" part or the raw document itself.
func (h *Handler) extract(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fileName, contentType, buf, err := readUpload(c)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}

	ex, err := h.Svc.Extract(c.Request.Context(), fileName, contentType, buf)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", "document is empty", nil)
		case errors.Is(err, ErrMalformedCSV):
			respond.Error(c, http.StatusBadRequest, "validation_error", "csv could not be parsed", nil)
		case errors.Is(err, ErrUnreadableDocument):
			respond.Error(c, http.StatusUnprocessableEntity, "unreadable_document", "no text could be extracted from the document", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to extract menu", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, toResponse(ex))
}

type submitRequest struct {
	Text string `json:"text"`
}

func (h *Handler) submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "text is required", nil)
		return
	}

	id, err := h.Queue.Add(extract.NormalizeBufferToUTF8([]byte(req.Text)))
	if err != nil {
		switch {
		case errors.Is(err, jobs.ErrQueueFull):
			c.Header("Retry-After", "5")
			respond.Error(c, http.StatusServiceUnavailable, "queue_full", "extraction queue is full, retry later", nil)
		case errors.Is(err, jobs.ErrShuttingDown):
			respond.Error(c, http.StatusServiceUnavailable, "shutting_down", "server is shutting down", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to queue extraction", nil)
		}
		return
	}

	c.Set("jobId", id)
	respond.JSON(c, http.StatusAccepted, gin.H{
		"id":    id,
		"state": jobs.StateQueued,
	})
}

func (h *Handler) status(c *gin.Context) {
	jobID := c.Param("id")
	if jobID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "job id is required", nil)
		return
	}

	if !h.limiter.Allow(c.ClientIP(), jobID) {
		c.Header("Retry-After", strconv.Itoa(h.limiter.RetryAfterSeconds()))
		respond.Error(c, http.StatusTooManyRequests, "poll_too_fast", "poll interval too short", nil)
		return
	}

	c.Set("jobId", jobID)
	job, ok := h.Queue.Get(jobID)
	if !ok {
		respond.Error(c, http.StatusNotFound, "not_found", "extraction job not found", nil)
		return
	}

	respond.JSON(c, http.StatusOK, job)
}

// readUpload pulls the document out of a multipart "file" part when one is
// present, else treats the request body as the document.
func readUpload(c *gin.Context) (fileName, contentType string, buf []byte, err error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fileHeader, ferr := c.FormFile("file")
		if ferr != nil {
			return "", "", nil, errors.New("file is required")
		}
		file, ferr := fileHeader.Open()
		if ferr != nil {
			return "", "", nil, errors.New("unable to read file")
		}
		defer file.Close()
		buf, ferr = io.ReadAll(file)
		if ferr != nil {
			return "", "", nil, errors.New("unable to read file")
		}
		return fileHeader.Filename, fileHeader.Header.Get("Content-Type"), buf, nil
	}

	buf, err = io.ReadAll(c.Request.Body)
	if err != nil {
		return "", "", nil, errors.New("unable to read request body")
	}
	return "", c.ContentType(), buf, nil
}
