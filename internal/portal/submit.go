package portal

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/huquq-center/insaf/internal/auth"
	"github.com/huquq-center/insaf/internal/wizard"
	"github.com/huquq-center/insaf/model"
)

const createCaseOp = "createCase"

// SubmitCase runs the full submission pipeline: re-validate every wizard
// step, flatten the draft, pre-validate it against the portal contract,
// and post it under an idempotency key. The wizard is reset only after
// the portal accepts the case.
func (s *Service) SubmitCase(ctx context.Context, eng *wizard.Engine) (model.SubmissionResult, error) {
	if errSteps, summaries := revalidate(eng); len(errSteps) > 0 {
		eng.ApplyValidationErrors(errSteps, summaries)
		return model.SubmissionResult{}, model.NewValidationError(fieldErrors(eng, errSteps))
	}

	payload := flatten(eng.Draft())

	if errs := s.index.ValidateRequest(createCaseOp, payload); len(errs) > 0 {
		details := make([]model.FieldError, 0, len(errs))
		for _, e := range errs {
			details = append(details, model.FieldError{Field: e.Field, Message: e.Message})
		}
		return model.SubmissionResult{}, model.NewValidationError(details)
	}

	path, err := s.path(createCaseOp, nil)
	if err != nil {
		return model.SubmissionResult{}, err
	}

	var out model.SubmissionResult
	err = s.api.Post(ctx, path, payload, &out, auth.CallOptions{
		Headers:   map[string]string{"X-Idempotency-Key": uuid.NewString()},
		Operation: createCaseOp,
	})
	if err != nil {
		return model.SubmissionResult{}, err
	}

	s.logger.Info("case submitted",
		zap.String("case_id", out.CaseID),
		zap.String("case_number", out.CaseNumber),
	)
	eng.Reset()
	return out, nil
}

// UploadDocument stores a document with the portal and returns its
// reference for use in the draft.
func (s *Service) UploadDocument(ctx context.Context, kind, fileName string, content []byte) (model.Document, error) {
	path, err := s.path("uploadDocument", nil)
	if err != nil {
		return model.Document{}, err
	}

	var out model.Document
	err = s.api.Upload(ctx, path,
		map[string]string{"kind": kind},
		[]auth.UploadFile{{Field: "file", FileName: fileName, Content: content}},
		&out, auth.CallOptions{Operation: "uploadDocument"})
	if err != nil {
		return model.Document{}, err
	}
	return out, nil
}

// revalidate runs every step's rule set and collects the failures, the
// cross-step consistency pass done right before submission.
func revalidate(eng *wizard.Engine) ([]int, map[int][]string) {
	var errSteps []int
	summaries := make(map[int][]string)
	for n := 1; n <= wizard.StepCount; n++ {
		res := eng.ValidateStep(n)
		if res.Valid {
			continue
		}
		errSteps = append(errSteps, n)
		for field, msg := range res.FieldErrors {
			summaries[n] = append(summaries[n], fmt.Sprintf("%s: %s", field, msg))
		}
	}
	return errSteps, summaries
}

func fieldErrors(eng *wizard.Engine, steps []int) []model.FieldError {
	var details []model.FieldError
	for _, n := range steps {
		res := eng.ValidateStep(n)
		for field, msg := range res.FieldErrors {
			details = append(details, model.FieldError{Field: field, Code: msg, Message: msg})
		}
	}
	return details
}

// flatten merges the draft's sections into the single flat object the
// portal's create operation expects. Section field names are globally
// unique by construction.
func flatten(d wizard.Draft) map[string]any {
	out := make(map[string]any)
	for _, name := range wizard.SectionOrder {
		for k, v := range d[name] {
			out[k] = v
		}
	}
	return out
}
