package service

import (
	"context"
	"strings"

	"github.com/arkline/erp-api/internal/domain/identity"
	apperrors "github.com/arkline/erp-api/internal/errors"
	"github.com/arkline/erp-api/internal/ports"
)

// ResetPassword sets a new password for the account with the given email
// through the privileged channel, revokes the principal's provider sessions,
// and queues the password-reset notice. The revocation and the notice are
// best effort; only the credential update itself can fail the operation.
func (r *Reconciler) ResetPassword(ctx context.Context, email, newPassword string) error {
	normalized := identity.NormalizeEmail(email)
	if !strings.Contains(normalized, "@") {
		return apperrors.New(apperrors.ErrCodeValidation, "a valid email address is required")
	}
	if newPassword == "" {
		return apperrors.New(apperrors.ErrCodeValidation, "a new password is required")
	}
	if r.admin == nil {
		return apperrors.
			New(apperrors.ErrCodeConfiguration, "password reset requires the privileged provider credential").
			WithRemediation("set the provider service key so passwords can be reset")
	}

	principal, err := r.admin.FindByEmail(ctx, normalized)
	if err != nil {
		if ports.ProviderErrorIs(err, ports.KindNotFound) {
			return apperrors.New(apperrors.ErrCodeNotFound, "no account exists for that email")
		}
		return apperrors.Wrap(err, apperrors.ErrCodeAuthProvider, "locate principal for password reset")
	}

	if updateErr := r.admin.UpdatePassword(ctx, principal.ID, newPassword); updateErr != nil {
		return apperrors.Wrap(updateErr, apperrors.ErrCodeAuthProvider, "update password")
	}

	// Provider sessions must not survive a credential change.
	if signOutErr := r.provider.SignOut(ctx, principal.ID); signOutErr != nil {
		r.logger.WarnContext(ctx, "sign-out after password reset failed",
			"principal_id", principal.ID, "err", signOutErr)
	}

	if r.dispatch != nil {
		if _, queueErr := r.dispatch.EnqueuePasswordReset(ctx, normalized); queueErr != nil {
			r.logger.WarnContext(ctx, "password reset notice enqueue failed",
				"principal_id", principal.ID, "err", queueErr)
		}
	}

	r.logger.InfoContext(ctx, "password reset", "principal_id", principal.ID)
	return nil
}
