package ai

import (
	"errors"

	"github.com/kiranshivaraju/healthradar/pkg/models"
)

var (
	ErrProviderUnavailable = models.ErrProviderUnavailable
	ErrInferenceTimeout    = models.ErrInferenceTimeout
	ErrInvalidResponse     = models.ErrInvalidResponse

	ErrNoCaseData = errors.New("no case data to analyse")
)
