package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProxyConfig struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name            string             `json:"name" bson:"name"`
	TargetURL       string             `json:"targetUrl" bson:"targetUrl"`     // stored without trailing "/"
	APIKey          string             `json:"apiKey" bson:"apiKey"`           // real upstream key
	BearerToken     string             `json:"bearerToken" bson:"bearerToken"` // caller-facing credential, unique
	Enabled         bool               `json:"enabled" bson:"enabled"`
	SupportedPaths  []string           `json:"supportedPaths" bson:"supportedPaths"` // informational only
	TimeoutSeconds  int                `json:"timeoutSeconds" bson:"timeoutSeconds"`
	MaxRetries      int                `json:"maxRetries" bson:"maxRetries"` // reserved
	LogRequestBody  bool               `json:"logRequestBody" bson:"logRequestBody"`
	LogResponseBody bool               `json:"logResponseBody" bson:"logResponseBody"`
	Description     string             `json:"description,omitempty" bson:"description,omitempty"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// Timeout falls back to def when the config has none.
func (c *ProxyConfig) Timeout(def time.Duration) time.Duration {
	if c.TimeoutSeconds > 0 {
		return time.Duration(c.TimeoutSeconds) * time.Second
	}
	return def
}
