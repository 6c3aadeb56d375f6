package entities

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	// ErrNotFound is returned when an upstream package or catalog entry does not exist.
	ErrNotFound = errors.New("not found")
	// ErrRateLimited is returned when the upstream source throttles requests.
	ErrRateLimited = errors.New("rate limited")
	// ErrUpstreamDown is returned when a circuit breaker for an upstream host is open.
	ErrUpstreamDown = errors.New("upstream unavailable")
	// ErrNoCompatibleFiles is returned when a package has nothing to install for the target frameworks.
	ErrNoCompatibleFiles = errors.New("no files compatible with the target frameworks")
)

// ConfigurationError reports invalid settings or an unreadable allow-list.
type ConfigurationError struct {
	Key string
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("configuration error: %v", e.Err)
	}
	return fmt.Sprintf("configuration error in %q: %v", e.Key, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// UpstreamQueryError reports a failed metadata query for one package id.
type UpstreamQueryError struct {
	PackageID string
	Err       error
}

func (e *UpstreamQueryError) Error() string {
	return fmt.Sprintf("error while fetching versions for %s: %v", e.PackageID, e.Err)
}

func (e *UpstreamQueryError) Unwrap() error { return e.Err }

// DependencyViolationError reports a declared dependency that the allow-list does not satisfy.
type DependencyViolationError struct {
	Package    PackageIdentity
	Dependency Dependency
	// AllowedRange is empty when the dependency is missing from the allow-list.
	AllowedRange string
}

func (e *DependencyViolationError) Error() string {
	if e.AllowedRange == "" {
		return fmt.Sprintf("the package %s has a dependency on %s which is not in the registry, you must add this dependency to the registry",
			e.Package, e.Dependency.ID)
	}
	return fmt.Sprintf("the version %s of %s is not within the range %s declared by %s, you must update the version range of %s in the registry",
		e.Dependency.Range, e.Dependency.ID, e.AllowedRange, e.Package, e.Dependency.ID)
}

// ConversionError reports a failure while writing an artifact.
type ConversionError struct {
	Package PackageIdentity
	Err     error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("error while processing package %s (%s): %v", e.Package, e.Package.PURL(), e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// UnexpectedError wraps a recovered panic or any failure outside the other categories.
type UnexpectedError struct {
	PackageID string
	Err       error
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("unexpected error while processing %s: %v", e.PackageID, e.Err)
}

func (e *UnexpectedError) Unwrap() error { return e.Err }
