package handlers

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/tumor-predict/internal/logging"
	"github.com/example/tumor-predict/internal/usecase"
)

// MaxUploadSize is the default limit for a single uploaded image.
const MaxUploadSize = 10 << 20

// multipartOverhead is the slack allowed on top of the image for boundaries and other fields.
const multipartOverhead = 1 << 20

const imageField = "image"

var (
	errUploadTooLarge = errors.New("image exceeds maximum upload size")
	errInvalidForm    = errors.New("invalid multipart form")
)

// Predictor is the part of the prediction use case the HTTP layer depends on.
type Predictor interface {
	Predict(ctx context.Context, upload usecase.Upload) (*usecase.Prediction, error)
	GetMetricsSummary() *usecase.MetricsSummary
}

// NewRouter builds the Gin engine with recovery, access logging and CORS open to every origin.
func NewRouter(uc Predictor, logger *zap.Logger, maxUploadBytes int64) *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = maxUploadBytes
	router.Use(
		logging.RequestLogger(logger),
		gin.CustomRecovery(func(c *gin.Context, recovered any) {
			logger.Error("panic while serving request",
				zap.Any("panic", recovered),
				zap.String("request_id", logging.RequestID(c.Request.Context())))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}),
		cors.New(cors.Config{
			AllowAllOrigins: true,
			AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:    []string{"Origin", "Content-Type", "Accept", logging.RequestIDHeader},
			ExposeHeaders:   []string{logging.RequestIDHeader},
			MaxAge:          12 * time.Hour,
		}),
	)

	RegisterRoutes(router, uc, maxUploadBytes)
	return router
}

// RegisterRoutes wires the HTTP handlers to the Gin router.
func RegisterRoutes(router gin.IRoutes, uc Predictor, maxUploadBytes int64) {
	if maxUploadBytes <= 0 {
		maxUploadBytes = MaxUploadSize
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/api/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, uc.GetMetricsSummary())
	})

	router.POST("/api/predict", func(c *gin.Context) {
		upload, err := readUpload(c, maxUploadBytes)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, errUploadTooLarge) {
				status = http.StatusRequestEntityTooLarge
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		prediction, err := uc.Predict(c.Request.Context(), upload)
		if err != nil {
			var (
				inputErr *usecase.InputError
				procErr  *usecase.ImageProcessingError
			)
			switch {
			case errors.As(err, &inputErr):
				c.JSON(http.StatusBadRequest, gin.H{"error": inputErr.Message})
			case errors.As(err, &procErr):
				c.JSON(http.StatusInternalServerError, gin.H{"error": procErr.Error()})
			default:
				_ = c.Error(err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "prediction failed"})
			}
			return
		}

		c.JSON(http.StatusOK, prediction)
	})
}

// readUpload returns the first file part named "image". Requests that are not multipart, or
// carry "image" only as a plain value, yield an Upload with Present unset.
func readUpload(c *gin.Context, limit int64) (usecase.Upload, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)

	reader, err := c.Request.MultipartReader()
	if err != nil {
		return usecase.Upload{}, nil
	}

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return usecase.Upload{}, nil
		}
		if err != nil {
			return usecase.Upload{}, uploadError(err)
		}
		if part.FormName() != imageField {
			continue
		}
		filename, isFile := partFilename(part.Header.Get("Content-Disposition"))
		if !isFile {
			continue
		}

		data, err := io.ReadAll(io.LimitReader(part, limit+1))
		if err != nil {
			return usecase.Upload{}, uploadError(err)
		}
		if int64(len(data)) > limit {
			return usecase.Upload{}, errUploadTooLarge
		}
		return usecase.Upload{Filename: filename, Data: data, Present: true}, nil
	}
}

// partFilename reports the raw filename parameter; an explicitly empty filename is still a file.
func partFilename(disposition string) (string, bool) {
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return "", false
	}
	filename, ok := params["filename"]
	return filename, ok
}

func uploadError(err error) error {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return errUploadTooLarge
	}
	return errInvalidForm
}
