package dto

import (
	"time"

	"mme/internal/pkg/request"
)

type LoginDto struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (LoginDto) GetMessages() request.ValidatorMessages {
	return request.ValidatorMessages{
		"Username.required": "username is required",
		"Password.required": "password is required",
	}
}

type LoginResponseDto struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}
