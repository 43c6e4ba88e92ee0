// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

// ErrCampaignNotFound is returned when a campaign does not exist for the user.
type ErrCampaignNotFound struct {
	CampaignID string
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %s not found", e.CampaignID)
}

// Helper constructor
func NewCampaignNotFound(id string) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

// ErrConfig reports a missing or invalid setting. It blocks the whole
// invocation and is never retried.
type ErrConfig struct {
	Setting string
}

func (e *ErrConfig) Error() string {
	return fmt.Sprintf("configuration error: %s is not set", e.Setting)
}

func NewConfigError(setting string) error {
	return &ErrConfig{Setting: setting}
}

// ErrInvalidPlatform is returned when a platform name has no canonical form.
type ErrInvalidPlatform struct {
	Name string
}

func (e *ErrInvalidPlatform) Error() string {
	return fmt.Sprintf("unknown platform %q", e.Name)
}

func NewInvalidPlatform(name string) error {
	return &ErrInvalidPlatform{Name: name}
}

// ErrLeaseHeld means another process owns the lease for the key.
var ErrLeaseHeld = errors.New("lease is held by another process")

func IsCampaignNotFound(err error) bool {
	var target *ErrCampaignNotFound
	return errors.As(err, &target)
}

func IsConfigError(err error) bool {
	var target *ErrConfig
	return errors.As(err, &target)
}

// ErrPermanent marks a job failure that must not be retried.
type ErrPermanent struct {
	Err error
}

func (e *ErrPermanent) Error() string { return e.Err.Error() }

func (e *ErrPermanent) Unwrap() error { return e.Err }

// Permanent wraps err so queue consumers drop the job instead of retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &ErrPermanent{Err: err}
}

// IsRetryable is false for permanent, configuration and not-found errors.
func IsRetryable(err error) bool {
	var p *ErrPermanent
	if errors.As(err, &p) {
		return false
	}
	return !IsConfigError(err) && !IsCampaignNotFound(err)
}

// ErrInvalidSettings is a user error in a settings update.
type ErrInvalidSettings struct {
	Reason string
}

func (e *ErrInvalidSettings) Error() string {
	return "invalid settings: " + e.Reason
}

func NewInvalidSettings(reason string) error {
	return &ErrInvalidSettings{Reason: reason}
}

func IsInvalidSettings(err error) bool {
	var target *ErrInvalidSettings
	return errors.As(err, &target)
}
