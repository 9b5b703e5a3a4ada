package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog"

	"student-writer-backend/internal/domain"
	"student-writer-backend/internal/domain/model"
	"student-writer-backend/internal/domain/ports/adapter"
	"student-writer-backend/internal/infra/metrics"
)

// Compile-time check
var _ PromptUseCase = (*promptUC)(nil)

const (
	maxActivities = 5
	minLength     = 100
	maxLength     = 1000
)

// basePrompt is the teacher-observation prompt frame the frontend pastes into
// an LLM. Wording mirrors the deployed template; %s is the joined activity
// text and %d the desired character count.
const basePrompt = `너는 고등학교 교사이며, 학생의 활동 내용을 바탕으로 학생부에 들어갈 문장을 작성하는 전문가야.

[조건]
- 문체는 학생부 기록에서 사용되는 교사 관찰형 문체를 사용할 것.
- 학생의 태도, 탐구 역량, 성장, 협업, 성찰 등이 드러나도록 작성할 것.
- 글자 수가 적을 경우 간결히, 많을 경우 풍부하게 서술할 것.
- 주관적인 판단은 배제하되 학생의 장점이 드러나도록 기술할 것.
- 반드시 교사의 시점에서 관찰한 것처럼 작성.

[입력]
- 활동 내용: %s
- 원하는 글자 수: %d자 내외

[출력]
학생부 문장:
`

// FreeTier grants a small number of daily uses to clients without a code.
// Implemented by infra/redis as a fixed-window counter.
type FreeTier interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type PromptUseCase interface {
	// Generate consumes one unit of the given code's quota (or a free-tier
	// unit when code is empty), renders the prompt and, when an AI adapter is
	// configured, completes it. Result.Remaining is -1 on the free tier.
	Generate(ctx context.Context, code, clientKey string, req model.PromptRequest) (*model.PromptResult, error)
}

type promptUC struct {
	codes     CodeUseCase
	freeTier  FreeTier
	freeLimit int
	ai        adapter.AIServiceAdapter // nil means prompt-only mode
	aiModel   string
	log       *zerolog.Logger
}

func NewPromptUseCase(codes CodeUseCase, freeTier FreeTier, freeLimit int, ai adapter.AIServiceAdapter, aiModel string, logger *zerolog.Logger) *promptUC {
	if freeLimit <= 0 {
		freeLimit = 5
	}
	return &promptUC{codes: codes, freeTier: freeTier, freeLimit: freeLimit, ai: ai, aiModel: aiModel, log: logger}
}

func (u *promptUC) Generate(ctx context.Context, code, clientKey string, req model.PromptRequest) (*model.PromptResult, error) {
	combined := joinActivities(req.Activities)
	if combined == "" {
		return nil, domain.ErrInvalidArgument
	}
	length := req.Length
	if length < minLength {
		length = minLength
	}
	if length > maxLength {
		length = maxLength
	}

	remaining := -1
	if code != "" {
		n, err := u.codes.Consume(ctx, code)
		if err != nil {
			return nil, err
		}
		remaining = n
	} else {
		ok, err := u.freeTier.Allow(ctx, freeTierKey(clientKey), u.freeLimit, 24*time.Hour)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.ErrFreeTierExhausted
		}
	}

	prompt := fmt.Sprintf(basePrompt, combined, length)
	res := &model.PromptResult{
		Prompt:     prompt,
		TokenCount: estimateTokens(prompt),
		Remaining:  remaining,
	}

	if u.ai != nil {
		completion, err := u.ai.Complete(ctx, u.aiModel, prompt)
		if err != nil {
			// The quota unit is spent either way; the prompt alone is still
			// useful, so an AI failure is non-fatal.
			u.log.Warn().Err(err).Str("provider", u.ai.Name()).Msg("completion failed, returning prompt only")
		} else {
			res.Completion = completion
		}
	}
	metrics.IncPromptGenerated(code != "")
	return res, nil
}

func joinActivities(activities []string) string {
	if len(activities) > maxActivities {
		activities = activities[:maxActivities]
	}
	var parts []string
	for _, a := range activities {
		if s := strings.TrimSpace(a); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

func freeTierKey(clientKey string) string {
	return "free_tier:" + clientKey
}

func estimateTokens(s string) int {
	enc, err := tiktoken.GetEncoding("o200k_base")
	if err != nil {
		return 0
	}
	return len(enc.Encode(s, nil, nil))
}
