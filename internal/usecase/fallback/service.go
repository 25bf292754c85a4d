package fallback

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docguard/internal/domain"
)

const (
	msgApproved = "Access Approved"
	msgDenied   = "Access Denied"
)

// Classifier scores reference-dataset records against a pre-trained
// model and turns the score into an access decision. It is the last
// resort of the identity gate: it only runs for users absent from the
// directory.
type Classifier struct {
	model   *Model
	builder *Builder
	logger  *zap.Logger
}

// NewClassifier loads the model artifact from modelPath and binds a
// feature builder to it.
func NewClassifier(modelPath string, logger *zap.Logger) (*Classifier, error) {
	model, err := LoadModel(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load fallback model: %w", err)
	}
	logger.Info("fallback model loaded",
		zap.String("path", modelPath),
		zap.Int("features", len(model.FeatureColumns)),
		zap.Float64("threshold", model.Threshold))
	return &Classifier{
		model:   model,
		builder: NewBuilder(model),
		logger:  logger,
	}, nil
}

// Predict builds the feature vector for a record, scores it, and maps
// the score to an approval or denial. It never returns an error: the
// feature builder is total and the model is validated at load time.
func (c *Classifier) Predict(rec Record) domain.Decision {
	features := c.builder.Build(rec)
	score := c.model.Score(features)

	c.logger.Debug("fallback prediction",
		zap.String("user_id", rec["user_id"]),
		zap.Float64("score", score),
		zap.Bool("approved", c.model.Approves(score)))

	if c.model.Approves(score) {
		return domain.Approved(msgApproved)
	}
	return domain.Denied(msgDenied)
}
