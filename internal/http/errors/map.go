package errors

import (
	"errors"

	"github.com/highshift/highshift/internal/platform"
	"github.com/highshift/highshift/internal/store/core"
	"github.com/highshift/highshift/internal/vault"
)

// MapDomain folds domain-level failures into API errors. Anything it
// does not recognize passes through untouched for WriteError to treat
// as internal.
func MapDomain(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, core.ErrNotFound):
		return ErrNotFound.WithErr(err)
	case errors.Is(err, core.ErrInvalidStateTransition):
		return ErrInvalidTransition.WithErr(err)
	case errors.Is(err, platform.ErrUnknownPlatform):
		return ErrUnsupportedPlatform.WithErr(err)
	case errors.Is(err, vault.ErrExpiredNoRefresh):
		return ErrTokenExpiredNoRefresh.WithErr(err)
	case errors.Is(err, vault.ErrRefreshFailed):
		return ErrTokenRefreshFailed.WithErr(err)
	}

	if pe, ok := platform.AsError(err); ok {
		return fromPlatform(pe)
	}
	return err
}

func fromPlatform(pe *platform.Error) *AppError {
	var base *AppError
	switch pe.Kind {
	case platform.KindAuth:
		base = ErrProviderAuthFailed
	case platform.KindRateLimited:
		base = ErrProviderRateLimited
	case platform.KindTimeout:
		base = ErrProviderTimeout
	case platform.KindNotImplemented:
		base = ErrNotImplemented
	default:
		base = ErrProviderAPI
	}
	return base.WithDetail(pe.Message).WithErr(pe)
}
