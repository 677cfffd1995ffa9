package keystore

import (
	"context"
	"fmt"
)

// enrollmentChanged reports whether a key bound to storedID has been
// invalidated by a change of the biometric enrollment.
func enrollmentChanged(ctx context.Context, src EnrollmentSource, spec KeySpec, storedID string) (bool, error) {
	if !spec.InvalidateOnEnrollmentChange || src == nil {
		return false, nil
	}
	current, err := src.EnrollmentID(ctx)
	if err != nil {
		return false, fmt.Errorf("keystore: read enrollment: %w", err)
	}
	return current != storedID, nil
}

func currentEnrollment(ctx context.Context, src EnrollmentSource, spec KeySpec) (string, error) {
	if !spec.InvalidateOnEnrollmentChange || src == nil {
		return "", nil
	}
	id, err := src.EnrollmentID(ctx)
	if err != nil {
		return "", fmt.Errorf("keystore: read enrollment: %w", err)
	}
	return id, nil
}
