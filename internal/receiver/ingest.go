package receiver

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/nixlim/camwatch/internal/detection"
)

// JSONIngest accepts detections as plain JSON on the HTTP API. The body
// is either one DetectionRequest or an array of them; a batch is rejected
// as a whole when any element is invalid.
type JSONIngest struct {
	sink Sink
	opts options
}

func NewJSONIngest(sink Sink, opts ...Option) *JSONIngest {
	return &JSONIngest{sink: sink, opts: buildOptions(opts)}
}

// RegisterRoutes mounts POST /api/v1/detections on r.
func (h *JSONIngest) RegisterRoutes(r gin.IRouter) {
	r.POST("/api/v1/detections", h.handleDetections)
}

func (h *JSONIngest) handleDetections(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	var reqs []DetectionRequest
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		err = binding.JSON.BindBody(trimmed, &reqs)
	} else {
		var single DetectionRequest
		err = binding.JSON.BindBody(trimmed, &single)
		reqs = []DetectionRequest{single}
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := h.opts.now()
	samples := make([]detection.Sample, 0, len(reqs))
	for i, req := range reqs {
		s, err := req.Sample(now)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("detection %d: %v", i, err)})
			return
		}
		samples = append(samples, s)
	}

	for _, s := range samples {
		if err := h.sink.Submit(c.Request.Context(), s); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "receiver is shutting down"})
			return
		}
		h.opts.debug.LogSample("api", s)
	}
	c.JSON(http.StatusAccepted, gin.H{"accepted": len(samples)})
}
