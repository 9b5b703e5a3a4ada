package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"student-writer-backend/internal/domain"
	"student-writer-backend/internal/domain/model"
	"student-writer-backend/internal/domain/ports/repository"
	"student-writer-backend/internal/infra/metrics"
)

// Compile-time check
var _ CodeUseCase = (*codeUC)(nil)

// maxTokenRetries bounds issuance retries on the (unlikely) token collision.
const maxTokenRetries = 5

// testCodeName is the fixed operator-only code minted by IssueTestCode.
const testCodeName = "TEST-100"

type CodeUseCase interface {
	// Issue mints a fresh unique code with the given quota and persists it.
	Issue(ctx context.Context, tx repository.Tx, quota int) (*model.RedemptionCode, error)
	// Validate is a read-only lookup; it never mutates state.
	Validate(ctx context.Context, code string) (*model.RedemptionCode, error)
	// Consume spends one unit and returns the remaining quota.
	Consume(ctx context.Context, code string) (int, error)
	// IssueTestCode mints the fixed test code at full quota. Callers must gate
	// this behind operator authorization; it is never on a public route.
	IssueTestCode(ctx context.Context) (*model.RedemptionCode, error)
}

type codeUC struct {
	codes        repository.CodeRepository
	defaultQuota int
	log          *zerolog.Logger
}

func NewCodeUseCase(codes repository.CodeRepository, defaultQuota int, logger *zerolog.Logger) *codeUC {
	if defaultQuota <= 0 {
		defaultQuota = 100
	}
	return &codeUC{codes: codes, defaultQuota: defaultQuota, log: logger}
}

func (u *codeUC) Issue(ctx context.Context, tx repository.Tx, quota int) (*model.RedemptionCode, error) {
	if quota <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	var lastErr error
	for i := 0; i < maxTokenRetries; i++ {
		token, err := generateCodeToken()
		if err != nil {
			return nil, err
		}
		rc := &model.RedemptionCode{
			ID:        uuid.NewString(),
			Code:      token,
			Quota:     quota,
			CreatedAt: time.Now(),
		}
		if err := u.codes.Create(ctx, tx, rc); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				lastErr = err
				continue // collision: mint a new token
			}
			return nil, err
		}
		metrics.IncCodeIssued()
		return rc, nil
	}
	u.log.Error().Int("retries", maxTokenRetries).Msg("code token collisions exhausted retries")
	return nil, lastErr
}

func (u *codeUC) Validate(ctx context.Context, code string) (*model.RedemptionCode, error) {
	if code == "" {
		return nil, domain.ErrInvalidArgument
	}
	return u.codes.FindByCode(ctx, repository.NoTX, code)
}

func (u *codeUC) Consume(ctx context.Context, code string) (int, error) {
	if code == "" {
		return 0, domain.ErrInvalidArgument
	}
	remaining, err := u.codes.Decrement(ctx, repository.NoTX, code)
	if err != nil {
		metrics.IncRedemption(redemptionResult(err))
		return 0, err
	}
	metrics.IncRedemption("ok")
	return remaining, nil
}

func (u *codeUC) IssueTestCode(ctx context.Context) (*model.RedemptionCode, error) {
	rc := &model.RedemptionCode{
		ID:        uuid.NewString(),
		Code:      testCodeName,
		Quota:     u.defaultQuota,
		CreatedAt: time.Now(),
	}
	if err := u.codes.Create(ctx, repository.NoTX, rc); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			// The test code is a fixed name; hand back the existing row.
			return u.codes.FindByCode(ctx, repository.NoTX, testCodeName)
		}
		return nil, err
	}
	u.log.Info().Str("code", rc.Code).Int("quota", rc.Quota).Msg("test code issued")
	return rc, nil
}

func redemptionResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrQuotaExhausted):
		return "exhausted"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
