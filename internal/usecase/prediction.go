package usecase

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/example/tumor-predict/internal/classifier"
	"github.com/example/tumor-predict/internal/imageprocessor"
	"github.com/example/tumor-predict/internal/logging"
)

// UninferredMessage is reported when no keyword matches the filename.
const UninferredMessage = "Unable to infer tumor type from file"

const imageCachePrefix = "prediction:image:"

// Upload is a single uploaded file. Present is false when the request carried no file at all.
type Upload struct {
	Filename string
	Data     []byte
	Present  bool
}

// Prediction is the response for one upload.
type Prediction struct {
	Image      string  `json:"image"`
	Prediction string  `json:"prediction"`
	Confidence float64 `json:"confidence"`
	Label      string  `json:"-"`
}

// Option customizes a PredictionUseCase.
type Option func(*PredictionUseCase)

// WithCache reuses encoded images stored in cache for ttl.
func WithCache(cache Cache, ttl time.Duration) Option {
	return func(uc *PredictionUseCase) {
		uc.cache = cache
		uc.cacheTTL = ttl
	}
}

// WithRandomSource replaces the confidence generator.
func WithRandomSource(source RandomSource) Option {
	return func(uc *PredictionUseCase) {
		if source != nil {
			uc.random = source
		}
	}
}

// PredictionUseCase turns an upload into a Prediction.
type PredictionUseCase struct {
	classifier     classifier.Classifier
	encoder        imageprocessor.Encoder
	random         RandomSource
	cache          Cache
	cacheTTL       time.Duration
	metrics        *metrics
	logger         *zap.Logger
	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewPredictionUseCase constructs a new use case instance. The cache is off unless WithCache is given.
func NewPredictionUseCase(c classifier.Classifier, encoder imageprocessor.Encoder, logger *zap.Logger, opts ...Option) *PredictionUseCase {
	uc := &PredictionUseCase{
		classifier:     c,
		encoder:        encoder,
		random:         DefaultRandomSource(),
		cacheTTL:       10 * time.Minute,
		metrics:        newMetrics(),
		logger:         logger.Named("prediction_usecase"),
		retryAttempts:  3,
		initialBackoff: 50 * time.Millisecond,
		maxBackoff:     time.Second,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Predict labels the upload from its filename and re-encodes the image as a JPEG data URI.
// Missing input yields an *InputError, an undecodable image an *ImageProcessingError.
func (uc *PredictionUseCase) Predict(ctx context.Context, upload Upload) (*Prediction, error) {
	start := time.Now()
	requestID := logging.RequestID(ctx)
	opLogger := logging.WithOperation(uc.logger, "usecase.predict", requestID)

	if !upload.Present {
		uc.metrics.recordRejected()
		return nil, ErrNoImage
	}
	if upload.Filename == "" {
		uc.metrics.recordRejected()
		return nil, ErrEmptyFilename
	}

	result, err := uc.classifier.Classify(ctx, upload.Filename, upload.Data)
	if err != nil {
		uc.metrics.recordFailed(time.Since(start))
		wrapped := logging.NewOperationError("usecase.classify", requestID, err)
		opLogger.Error("classification failed", zap.Error(wrapped))
		return nil, wrapped
	}

	imageURI, err := uc.encodeImage(ctx, requestID, upload.Data)
	if err != nil {
		uc.metrics.recordFailed(time.Since(start))
		opLogger.Warn("image processing failed",
			zap.Error(logging.NewOperationError("imageprocessor.encode_data_uri", requestID, err)),
			zap.Int("bytes", len(upload.Data)))
		return nil, &ImageProcessingError{Err: err}
	}

	prediction := &Prediction{Image: imageURI, Prediction: UninferredMessage}
	if result.Inferred {
		prediction.Prediction = result.Display
		prediction.Label = result.Label
		prediction.Confidence = confidenceFrom(uc.random.Float64())
	}

	elapsed := time.Since(start)
	uc.metrics.recordServed(prediction, elapsed)
	opLogger.Info("prediction served",
		zap.String("label", prediction.Label),
		zap.Float64("confidence", prediction.Confidence),
		zap.Duration("elapsed", elapsed))
	return prediction, nil
}

// encodeImage consults the cache before encoding. Cache failures never fail the request.
func (uc *PredictionUseCase) encodeImage(ctx context.Context, requestID string, data []byte) (string, error) {
	if uc.cache == nil {
		return uc.encoder.EncodeDataURI(ctx, data)
	}

	opLogger := logging.WithOperation(uc.logger, "usecase.encode_image", requestID)
	sum := sha1.Sum(data)
	cacheKey := imageCachePrefix + hex.EncodeToString(sum[:])

	cached, err := uc.withRedisGet(ctx, requestID, "cache.get.image", cacheKey)
	switch {
	case err == nil && strings.HasPrefix(cached, imageprocessor.DataURIPrefix):
		opLogger.Debug("encoded image served from cache", zap.String("cache_key", cacheKey))
		return cached, nil
	case err == nil:
		opLogger.Warn("ignoring malformed cache entry", zap.String("cache_key", cacheKey))
	case !errors.Is(err, redis.Nil):
		opLogger.Warn("failed to read cache", zap.Error(err))
	}

	imageURI, err := uc.encoder.EncodeDataURI(ctx, data)
	if err != nil {
		return "", err
	}

	if err := uc.withRedisRetry(ctx, requestID, "cache.set.image", func() error {
		return uc.cache.Set(ctx, cacheKey, imageURI, uc.cacheTTL)
	}); err != nil {
		opLogger.Warn("failed to cache encoded image", zap.Error(err))
	}
	return imageURI, nil
}

func (uc *PredictionUseCase) withRedisRetry(ctx context.Context, requestID, operation string, fn func() error) error {
	if uc.retryAttempts <= 1 {
		return logging.NewOperationError(operation, requestID, fn())
	}

	backoff := uc.initialBackoff
	opLogger := logging.WithOperation(uc.logger, operation, requestID)
	var err error
	for attempt := 0; attempt < uc.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return logging.NewOperationError(operation, requestID, ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= uc.maxBackoff {
				backoff = next
			}
		}

		err = fn()
		if err == nil {
			if attempt > 0 {
				opLogger.Info("redis operation succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return nil
		}

		if !isTransientError(err) || attempt == uc.retryAttempts-1 {
			return logging.NewOperationError(operation, requestID, err)
		}

		opLogger.Warn("transient redis error", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return logging.NewOperationError(operation, requestID, err)
}

func (uc *PredictionUseCase) withRedisGet(ctx context.Context, requestID, operation, cacheKey string) (string, error) {
	var result string
	err := uc.withRedisRetry(ctx, requestID, operation, func() error {
		value, err := uc.cache.Get(ctx, cacheKey)
		if err != nil {
			return err
		}
		result = value
		return nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

func isTransientError(err error) bool {
	if err == nil || errors.Is(err, redis.Nil) {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var temporary interface{ Temporary() bool }
	if errors.As(err, &temporary) && temporary.Temporary() {
		return true
	}

	return false
}
