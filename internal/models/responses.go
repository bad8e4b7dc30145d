package models

import (
	"dataviz-backend/internal/cleaning"
	"dataviz-backend/internal/transform"
)

// DataResponse is returned after a successful upload or table import
type DataResponse struct {
	Data       []map[string]interface{} `json:"data"`
	Columns    []string                 `json:"columns"`
	Preview    []map[string]interface{} `json:"preview"`
	Statistics *transform.Statistics    `json:"statistics"`
	Cleaning   *cleaning.Report         `json:"cleaning"`
}

// ImageResponse carries a base64 encoded PNG
type ImageResponse struct {
	Image string `json:"image"`
}

// TokenResponse is returned by a successful login
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}
