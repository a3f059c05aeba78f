// Package rest is the thin REST adapter: it translates HTTP verbs into
// Manager operations and maps ManagerError kinds onto HTTP status codes.
// Built on gin, with request and response bodies going through
// json-iterator rather than encoding/json.
package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"github.com/omarelawady/godownload/internal/errs"
	"github.com/omarelawady/godownload/internal/manager"
	"github.com/omarelawady/godownload/internal/metrics"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// addRequest is the JSON body for POST /api/v1/jobs/.
type addRequest struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// cancelRequest is the JSON body for DELETE /api/v1/jobs/{name}.
type cancelRequest struct {
	Forget bool `json:"forget"`
	Delete bool `json:"delete"`
}

// errorBody is the wire shape of an error response: {"Error": "<message>"}.
type errorBody struct {
	Error string `json:"Error"`
}

// New builds the gin engine exposing the four job endpoints under
// /api/v1/jobs/, plus /healthz and /metrics.
func New(client *manager.Client, m *metrics.Metrics, log zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(requestID(), requestLogger(log), gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		writeJSON(c, http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(m.Handler()))

	jobs := r.Group("/api/v1/jobs")
	jobs.GET("", func(c *gin.Context) { handleList(c, client) })
	jobs.GET("/:name", func(c *gin.Context) { handleInfo(c, client) })
	jobs.POST("", func(c *gin.Context) { handleAdd(c, client) })
	jobs.DELETE("/:name", func(c *gin.Context) { handleCancel(c, client) })

	return r
}

func handleList(c *gin.Context, client *manager.Client) {
	list, err := client.List()
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, list)
}

func handleInfo(c *gin.Context, client *manager.Client) {
	info, err := client.Info(c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, info)
}

func handleAdd(c *gin.Context, client *manager.Client) {
	var req addRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errs.Newf(errs.DecodingError, "invalid request body: %v", err))
		return
	}
	info, err := client.Add(req.URL, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, info)
}

func handleCancel(c *gin.Context, client *manager.Client) {
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errs.Newf(errs.DecodingError, "invalid request body: %v", err))
		return
	}
	if err := client.Cancel(c.Param("name"), req.Forget, req.Delete); err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": "ok"})
}

// writeJSON marshals v with json-iterator rather than gin's built-in
// encoding/json renderer.
func writeJSON(c *gin.Context, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Data(status, "application/json; charset=utf-8", body)
}

// writeError maps a ManagerError's kind onto an HTTP status:
// DownloadJobNotFound -> 404, InvalidAddress -> 400, anything else -> 500.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch errs.KindOf(err) {
	case errs.DownloadJobNotFound:
		status = http.StatusNotFound
	case errs.InvalidAddress:
		status = http.StatusBadRequest
	}
	writeJSON(c, status, errorBody{Error: err.Error()})
}

const headerRequestID = "X-Request-ID"

// requestID stamps every request with a correlation id, generating one
// when the caller didn't supply it.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set(headerRequestID, id)
		c.Set("request_id", id)
		c.Next()
	}
}

// requestLogger logs each request at debug level with its correlation id,
// method, path, and resulting status.
func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.Debug().
			Str("request_id", c.GetString("request_id")).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}
