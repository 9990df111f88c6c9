package geo

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Geocoder resolves coordinates to a short address label
type Geocoder interface {
	Reverse(ctx context.Context, lat, lng float64) (string, error)
}

// nominatimResponse subset of the /reverse payload
type nominatimResponse struct {
	DisplayName string `json:"display_name"`
	Address     struct {
		City string `json:"city"`
		Town string `json:"town"`
	} `json:"address"`
}

// NominatimGeocoder OpenStreetMap reverse geocoder
type NominatimGeocoder struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewNominatimGeocoder creates a geocoder against baseURL
func NewNominatimGeocoder(baseURL, userAgent string, timeout time.Duration, logger *zap.Logger) *NominatimGeocoder {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json")

	return &NominatimGeocoder{
		httpClient: client,
		logger:     logger,
	}
}

// Reverse returns "<first display component>[, <city or town>]"
func (g *NominatimGeocoder) Reverse(ctx context.Context, lat, lng float64) (string, error) {
	var response nominatimResponse
	resp, err := g.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"format": "json",
			"lat":    strconv.FormatFloat(lat, 'f', -1, 64),
			"lon":    strconv.FormatFloat(lng, 'f', -1, 64),
		}).
		SetResult(&response).
		Get("/reverse")
	if err != nil {
		return "", fmt.Errorf("failed to call geocoder: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("geocoder error (status: %d)", resp.StatusCode())
	}

	label := strings.TrimSpace(strings.Split(response.DisplayName, ",")[0])
	if label == "" {
		label = CoordinateLabel(lat, lng)
	}
	city := response.Address.City
	if city == "" {
		city = response.Address.Town
	}
	if city != "" {
		label = label + ", " + city
	}

	g.logger.Debug("Reverse geocoded location",
		zap.Float64("lat", lat),
		zap.Float64("lng", lng),
		zap.String("label", label),
	)
	return label, nil
}

// CoordinateLabel fallback label, 3 decimals
func CoordinateLabel(lat, lng float64) string {
	return fmt.Sprintf("%.3f, %.3f", lat, lng)
}
