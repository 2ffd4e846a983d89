package dto

import (
	"time"

	"mme/internal/pkg/request"
)

type CreateProxyConfigDto struct {
	Name            string   `json:"name" binding:"required,max=100"`
	TargetURL       string   `json:"targetUrl" binding:"required,url"`
	APIKey          string   `json:"apiKey" binding:"required"`
	Enabled         *bool    `json:"enabled" binding:"omitempty"`
	SupportedPaths  []string `json:"supportedPaths" binding:"omitempty,dive,startswith=/"`
	TimeoutSeconds  *int     `json:"timeoutSeconds" binding:"omitempty,min=1,max=3600"`
	MaxRetries      *int     `json:"maxRetries" binding:"omitempty,min=0,max=10"`
	LogRequestBody  *bool    `json:"logRequestBody" binding:"omitempty"`
	LogResponseBody *bool    `json:"logResponseBody" binding:"omitempty"`
	Description     string   `json:"description" binding:"omitempty,max=500"`
}

func (CreateProxyConfigDto) GetMessages() request.ValidatorMessages {
	return proxyConfigMessages
}

// UpdateProxyConfigDto replaces every field except the bearer token.
type UpdateProxyConfigDto struct {
	Name            string   `json:"name" binding:"required,max=100"`
	TargetURL       string   `json:"targetUrl" binding:"required,url"`
	APIKey          string   `json:"apiKey" binding:"omitempty"`
	Enabled         bool     `json:"enabled"`
	SupportedPaths  []string `json:"supportedPaths" binding:"omitempty,dive,startswith=/"`
	TimeoutSeconds  int      `json:"timeoutSeconds" binding:"required,min=1,max=3600"`
	MaxRetries      int      `json:"maxRetries" binding:"min=0,max=10"`
	LogRequestBody  bool     `json:"logRequestBody"`
	LogResponseBody bool     `json:"logResponseBody"`
	Description     string   `json:"description" binding:"omitempty,max=500"`
}

func (UpdateProxyConfigDto) GetMessages() request.ValidatorMessages {
	return proxyConfigMessages
}

var proxyConfigMessages = request.ValidatorMessages{
	"Name.required":               "name is required",
	"Name.max":                    "name must be at most 100 characters",
	"TargetURL.required":          "targetUrl is required",
	"TargetURL.url":               "targetUrl must be an absolute URL",
	"APIKey.required":             "apiKey is required",
	"SupportedPaths.*.startswith": "supportedPaths entries must start with /",
	"TimeoutSeconds.required":     "timeoutSeconds is required",
	"TimeoutSeconds.min":          "timeoutSeconds must be at least 1",
	"TimeoutSeconds.max":          "timeoutSeconds must be at most 3600",
	"MaxRetries.min":              "maxRetries must not be negative",
	"MaxRetries.max":              "maxRetries must be at most 10",
	"Description.max":             "description must be at most 500 characters",
}

// ProxyConfigResponseDto never carries the full upstream key.
type ProxyConfigResponseDto struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	TargetURL       string    `json:"targetUrl"`
	APIKey          string    `json:"apiKey"`
	BearerToken     string    `json:"bearerToken"`
	Enabled         bool      `json:"enabled"`
	SupportedPaths  []string  `json:"supportedPaths"`
	TimeoutSeconds  int       `json:"timeoutSeconds"`
	MaxRetries      int       `json:"maxRetries"`
	LogRequestBody  bool      `json:"logRequestBody"`
	LogResponseBody bool      `json:"logResponseBody"`
	Description     string    `json:"description,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type RefreshTokenResponseDto struct {
	BearerToken string `json:"bearerToken"`
}
