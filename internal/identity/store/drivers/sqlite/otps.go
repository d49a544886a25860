package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/arcwell/identity/internal/identity/domain"
)

type otpsRepo struct {
	db dbtx
}

const otpColumns = `id, user_id, email, code, purpose, used, expires_at, created_at`

func (r *otpsRepo) CreateOTP(ctx context.Context, otp domain.OTP) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO otps (user_id, email, code, purpose, used, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		mapOptionalInt64(otp.UserID),
		otp.Email,
		otp.Code,
		string(otp.Purpose),
		otp.Used,
		otp.ExpiresAt.UTC(),
		time.Now().UTC(),
	)
	if err != nil {
		return 0, mapConstraint(err)
	}
	return res.LastInsertId()
}

func (r *otpsRepo) GetValidOTP(ctx context.Context, email, code string, purpose domain.OTPPurpose, now time.Time) (domain.OTP, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+otpColumns+` FROM otps
		WHERE email = ? AND code = ? AND purpose = ? AND used = 0 AND expires_at > ?
		ORDER BY created_at DESC
		LIMIT 1`,
		email, code, string(purpose), now.UTC())
	return scanOTP(row)
}

func (r *otpsRepo) GetLatestOTP(ctx context.Context, email string, purpose domain.OTPPurpose) (domain.OTP, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+otpColumns+` FROM otps
		WHERE email = ? AND purpose = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`,
		email, string(purpose))
	return scanOTP(row)
}

func (r *otpsRepo) MarkOTPUsed(ctx context.Context, id int64) error {
	// Guarded so a code consumed by a concurrent caller reports ErrNotFound
	// instead of silently succeeding twice.
	res, err := r.db.ExecContext(ctx, `UPDATE otps SET used = 1 WHERE id = ? AND used = 0`, id)
	if err != nil {
		return fmt.Errorf("mark otp used: %w", err)
	}
	return requireRow(res)
}

func (r *otpsRepo) InvalidateOTPs(ctx context.Context, email string, purpose domain.OTPPurpose) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE otps SET used = 1
		WHERE email = ? AND purpose = ? AND used = 0`,
		email, string(purpose))
	return err
}

func (r *otpsRepo) DeleteExpiredOTPs(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM otps WHERE expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired otps: %w", err)
	}
	return res.RowsAffected()
}

func scanOTP(row rowScanner) (domain.OTP, error) {
	var (
		otp    domain.OTP
		userID sql.NullInt64
	)
	err := row.Scan(
		&otp.ID,
		&userID,
		&otp.Email,
		&otp.Code,
		&otp.Purpose,
		&otp.Used,
		&otp.ExpiresAt,
		&otp.CreatedAt,
	)
	if err != nil {
		return domain.OTP{}, mapNotFound(err)
	}
	otp.UserID = mapNullInt64Ptr(userID)
	return otp, nil
}
