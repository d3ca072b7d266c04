package models

import (
	"errors"
	"fmt"
)

// ThresholdConfig is the retention policy for one run. It is read-only once built.
type ThresholdConfig struct {
	AdminWindowDays     int     `json:"admin_window_days"`
	UserWindowDays      int     `json:"user_window_days"`
	LowRatedWindowDays  int     `json:"low_rated_window_days"`
	AdminRatingFloor    float64 `json:"admin_rating_floor"`
	UserRatingFloor     float64 `json:"user_rating_floor"`
	LowRatingFloor      float64 `json:"low_rating_floor"`
	ExternalRatingFloor float64 `json:"external_rating_floor"`
}

// DefaultThresholds returns the stock retention policy
func DefaultThresholds() ThresholdConfig {
	return ThresholdConfig{
		AdminWindowDays:     180,
		UserWindowDays:      90,
		LowRatedWindowDays:  30,
		AdminRatingFloor:    5,
		UserRatingFloor:     5,
		LowRatingFloor:      2.5,
		ExternalRatingFloor: 8,
	}
}

// WindowFor returns the retention window for a requester class
func (t ThresholdConfig) WindowFor(class RequesterClass) int {
	if class == RequesterAdmin {
		return t.AdminWindowDays
	}
	return t.UserWindowDays
}

// RatingFloorFor returns the Plex rating that protects a movie for a requester class
func (t ThresholdConfig) RatingFloorFor(class RequesterClass) float64 {
	if class == RequesterAdmin {
		return t.AdminRatingFloor
	}
	return t.UserRatingFloor
}

// Validate checks day values are non-negative and floors lie in [0,10]
func (t ThresholdConfig) Validate() error {
	var errs []error

	days := map[string]int{
		"admin window":     t.AdminWindowDays,
		"user window":      t.UserWindowDays,
		"low-rated window": t.LowRatedWindowDays,
	}
	for name, v := range days {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must be >= 0 days, got %d", name, v))
		}
	}

	floors := map[string]float64{
		"admin rating floor":    t.AdminRatingFloor,
		"user rating floor":     t.UserRatingFloor,
		"low rating floor":      t.LowRatingFloor,
		"external rating floor": t.ExternalRatingFloor,
	}
	for name, v := range floors {
		if v < 0 || v > 10 {
			errs = append(errs, fmt.Errorf("%s must be within 0-10, got %.2f", name, v))
		}
	}

	return errors.Join(errs...)
}
