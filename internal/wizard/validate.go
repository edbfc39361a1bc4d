package wizard

import (
	"time"
)

// dateLayout is the wire format for date fields.
const dateLayout = "2006-01-02"

// Validation message keys. The core never formats user-facing text; the
// presentation layer resolves these per locale.
const (
	MsgRequired        = "required"
	MsgInvalidID       = "invalid_national_id"
	MsgInvalidDate     = "invalid_date"
	MsgUnderEighteen   = "under_eighteen"
	MsgConsentRequired = "consent_required"
)

// StepResult is the outcome of validating one step.
type StepResult struct {
	Valid bool
	// FieldErrors maps field name to a message key. Empty when Valid.
	FieldErrors map[string]string
}

func (r *StepResult) fail(field, msg string) {
	if r.FieldErrors == nil {
		r.FieldErrors = make(map[string]string)
	}
	if _, dup := r.FieldErrors[field]; !dup {
		r.FieldErrors[field] = msg
	}
	r.Valid = false
}

// ValidateStep checks the rule set of one step against the draft. Steps
// without a rule set are always completable. now anchors the age check.
func ValidateStep(step int, d Draft, now time.Time) StepResult {
	res := StepResult{Valid: true}
	switch step {
	case 1:
		validateDetainee(d[SectionDetainee], now, &res)
	case 3:
		validateClient(d[SectionClient], &res)
	case 5:
		validateDelegation(d[SectionDelegation], &res)
	case 6:
		validateConsent(d[SectionConsent], &res)
	}
	return res
}

func validateDetainee(sec Section, now time.Time, res *StepResult) {
	for _, field := range []string{
		"detainee_name",
		"detainee_id",
		"detainee_date_of_birth",
		"health_status",
		"marital_status",
		"governorate",
		"city",
		"district",
	} {
		if stringField(sec, field) == "" {
			res.fail(field, MsgRequired)
		}
	}
	if id := stringField(sec, "detainee_id"); id != "" && !ValidNationalID(id) {
		res.fail("detainee_id", MsgInvalidID)
	}
	if dob := stringField(sec, "detainee_date_of_birth"); dob != "" {
		parsed, err := time.Parse(dateLayout, dob)
		if err != nil {
			res.fail("detainee_date_of_birth", MsgInvalidDate)
		} else if !AdultAt(parsed, now) {
			res.fail("detainee_date_of_birth", MsgUnderEighteen)
		}
	}
}

func validateClient(sec Section, res *StepResult) {
	for _, field := range []string{
		"client_name",
		"client_id",
		"client_phone",
		"client_relation",
	} {
		if stringField(sec, field) == "" {
			res.fail(field, MsgRequired)
		}
	}
	if id := stringField(sec, "client_id"); id != "" && !ValidNationalID(id) {
		res.fail("client_id", MsgInvalidID)
	}
}

func validateDelegation(sec Section, res *StepResult) {
	if stringField(sec, "power_of_attorney_ref") == "" {
		res.fail("power_of_attorney_ref", MsgRequired)
	}
	if stringField(sec, "client_id_copy_ref") == "" {
		res.fail("client_id_copy_ref", MsgRequired)
	}
}

func validateConsent(sec Section, res *StepResult) {
	if given, _ := sec["consent_given"].(bool); !given {
		res.fail("consent_given", MsgConsentRequired)
	}
}

// ValidNationalID reports whether id is a well-formed national ID:
// exactly nine digits, not all identical.
func ValidNationalID(id string) bool {
	if len(id) != 9 {
		return false
	}
	allSame := true
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
		if id[i] != id[0] {
			allSame = false
		}
	}
	return !allSame
}

// AdultAt reports whether a person born on dob is strictly over eighteen
// at now. A birth date landing exactly on the eighteen-year boundary does
// not qualify.
func AdultAt(dob, now time.Time) bool {
	boundary := time.Date(now.Year()-18, now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	d := time.Date(dob.Year(), dob.Month(), dob.Day(), 0, 0, 0, 0, time.UTC)
	return d.Before(boundary)
}

// stringField reads a field as a non-nil string. Nullable fields read as
// "" when nil.
func stringField(sec Section, field string) string {
	s, _ := sec[field].(string)
	return s
}
